// Package auth implements credential hashing and the authentication backend.
package auth

import (
	"context"
	"errors"
	"fmt"

	"loom/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// ErrHasherClosed is returned when work is submitted after Close.
var ErrHasherClosed = errors.New("hasher: closed")

// Hasher performs bcrypt hashing and verification on a bounded worker
// pool. Hashing is CPU-bound and can take tens of milliseconds, so it is
// never run inline on the goroutine servicing a request chain that holds
// shared resources; the caller suspends on a result channel instead.
type Hasher struct {
	sem    chan struct{}
	cost   int
	closed chan struct{}
}

// NewHasher returns a Hasher running at most workers concurrent bcrypt
// operations. workers <= 0 selects a single worker; cost outside the
// bcrypt range selects bcrypt.DefaultCost.
func NewHasher(workers, cost int) *Hasher {
	if workers <= 0 {
		workers = 1
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{
		sem:    make(chan struct{}, workers),
		cost:   cost,
		closed: make(chan struct{}),
	}
}

// Close rejects all future work. In-flight operations complete.
func (h *Hasher) Close() {
	select {
	case <-h.closed:
	default:
		close(h.closed)
	}
}

type hashResult struct {
	hash  string
	match bool
	err   error
}

// dispatch runs fn on the pool and suspends the caller until the result
// is ready. Pool saturation queues the caller; context cancellation and
// a closed pool surface as VerifyUnavailable, never as a credential
// verdict.
func (h *Hasher) dispatch(ctx context.Context, fn func() hashResult) (hashResult, error) {
	// A closed pool or already-dead context never acquires a worker slot.
	select {
	case <-h.closed:
		return hashResult{}, models.NewVerifyUnavailableError(ErrHasherClosed)
	default:
	}
	if err := ctx.Err(); err != nil {
		return hashResult{}, models.NewVerifyUnavailableError(err)
	}

	select {
	case <-h.closed:
		return hashResult{}, models.NewVerifyUnavailableError(ErrHasherClosed)
	case <-ctx.Done():
		return hashResult{}, models.NewVerifyUnavailableError(ctx.Err())
	case h.sem <- struct{}{}:
	}

	out := make(chan hashResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- hashResult{err: fmt.Errorf("hasher: worker panic: %v", r)}
			}
			<-h.sem
		}()
		out <- fn()
	}()

	select {
	case res := <-out:
		if res.err != nil && errors.Is(res.err, errWorkerFailure) {
			return hashResult{}, models.NewVerifyUnavailableError(res.err)
		}
		return res, nil
	case <-ctx.Done():
		// The worker finishes on its own; the result is discarded.
		return hashResult{}, models.NewVerifyUnavailableError(ctx.Err())
	}
}

var errWorkerFailure = errors.New("hasher: worker failure")

// Hash derives a self-describing bcrypt digest (algorithm, cost and salt
// are embedded in the output) suitable for storage in a single text column.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	res, err := h.dispatch(ctx, func() hashResult {
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		if err != nil {
			return hashResult{err: fmt.Errorf("%w: %v", errWorkerFailure, err)}
		}
		return hashResult{hash: string(b)}
	})
	if err != nil {
		return "", err
	}
	if res.err != nil {
		return "", models.NewVerifyUnavailableError(res.err)
	}
	return res.hash, nil
}

// Verify reports whether plaintext matches the stored digest under the
// parameters embedded in it. bcrypt's comparison is constant-time with
// respect to the digest, so partial matches leak no timing signal. A
// stored value that does not parse as a bcrypt digest verifies false.
func (h *Hasher) Verify(ctx context.Context, plaintext, stored string) (bool, error) {
	res, err := h.dispatch(ctx, func() hashResult {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
		switch {
		case err == nil:
			return hashResult{match: true}
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return hashResult{match: false}
		default:
			// Malformed or truncated stored hash: fail the credential,
			// not the request.
			return hashResult{match: false}
		}
	})
	if err != nil {
		return false, err
	}
	if res.err != nil {
		return false, models.NewVerifyUnavailableError(res.err)
	}
	return res.match, nil
}
