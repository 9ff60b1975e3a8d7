// Package session implements cookie-based sessions over a pluggable
// server-side store. The store backend (Redis or in-process memory) is
// selected by configuration, never hard-wired.
package session

import (
	"context"
	"time"
)

// Record is the server-side state bound to one session token. AuthHash
// is the user's session auth hash at login time; a session whose stored
// hash no longer matches the user's current one is rejected, which
// invalidates every session for a user the moment their password changes.
type Record struct {
	UserID   uint      `json:"user_id"`
	AuthHash string    `json:"auth_hash"`
	Expiry   time.Time `json:"expiry"`
}

// Store persists session records keyed by opaque token.
type Store interface {
	// Get returns the record for token, or (nil, nil) when the token is
	// unknown or expired.
	Get(ctx context.Context, token string) (*Record, error)
	// Set stores the record under token with the given time-to-live.
	Set(ctx context.Context, token string, rec *Record, ttl time.Duration) error
	// Delete removes the record for token; unknown tokens are a no-op.
	Delete(ctx context.Context, token string) error
}
