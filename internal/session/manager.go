package session

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"loom/internal/auth"
	"loom/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CookieName carries the opaque session token.
const CookieName = "loom_session"

// Locals keys set by Middleware for downstream handlers.
const (
	LocalsUserID = "userID"
	LocalsUser   = "user"
)

// Manager issues, resolves and revokes sessions. Tokens are random
// UUIDs; all state lives server side in the Store. Resolution re-checks
// the stored auth hash against the user's current one, so a password
// change kills every outstanding session for that user.
type Manager struct {
	store   Store
	backend auth.Authenticator
	ttl     time.Duration
	secure  bool
	logger  *slog.Logger
}

// NewManager returns a Manager with the given session time-to-live.
// secure controls the cookie's Secure attribute and should be true
// everywhere except local development.
func NewManager(store Store, backend auth.Authenticator, ttl time.Duration, secure bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, backend: backend, ttl: ttl, secure: secure, logger: logger}
}

// Login creates a session for user and sets the cookie on the response.
func (m *Manager) Login(c *fiber.Ctx, user *models.User) error {
	token := uuid.NewString()
	rec := &Record{
		UserID:   user.ID,
		AuthHash: auth.SessionAuthHash(user),
	}
	if err := m.store.Set(c.UserContext(), token, rec, m.ttl); err != nil {
		return models.NewStorageError(err)
	}
	m.setCookie(c, token, m.ttl)
	return nil
}

// Logout deletes the server-side record and clears the cookie. Logging
// out without a session is a no-op.
func (m *Manager) Logout(c *fiber.Ctx) error {
	token := c.Cookies(CookieName)
	if token != "" {
		if err := m.store.Delete(c.UserContext(), token); err != nil {
			return models.NewStorageError(err)
		}
	}
	m.setCookie(c, "", -time.Hour)
	return nil
}

// Middleware resolves the session on every request. A valid session
// sets LocalsUserID and LocalsUser; an absent, expired or stale session
// leaves them unset and clears the cookie. It never rejects the request
// itself; pair it with RequireAuth on protected routes.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(CookieName)
		if token == "" {
			return c.Next()
		}

		rec, err := m.store.Get(c.UserContext(), token)
		if err != nil {
			// Store trouble downgrades the request to anonymous rather
			// than failing it.
			m.logger.Error("session lookup failed", slog.String("error", err.Error()))
			return c.Next()
		}
		if rec == nil {
			m.setCookie(c, "", -time.Hour)
			return c.Next()
		}

		user, err := m.backend.GetUser(c.UserContext(), rec.UserID)
		if err != nil {
			m.logger.Error("session user lookup failed",
				slog.Uint64("user_id", uint64(rec.UserID)),
				slog.String("error", err.Error()),
			)
			return c.Next()
		}
		if user == nil || subtle.ConstantTimeCompare([]byte(rec.AuthHash), []byte(auth.SessionAuthHash(user))) != 1 {
			// Deleted user or changed password: the session is dead.
			if delErr := m.store.Delete(c.UserContext(), token); delErr != nil {
				m.logger.Error("stale session delete failed", slog.String("error", delErr.Error()))
			}
			m.setCookie(c, "", -time.Hour)
			return c.Next()
		}

		// Sliding expiry: each authenticated request renews the TTL.
		if err := m.store.Set(c.UserContext(), token, rec, m.ttl); err != nil {
			m.logger.Error("session renew failed", slog.String("error", err.Error()))
		} else {
			m.setCookie(c, token, m.ttl)
		}

		c.Locals(LocalsUserID, user.ID)
		c.Locals(LocalsUser, user)
		return c.Next()
	}
}

// RequireAuth rejects requests that Middleware left anonymous.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocalsUserID).(uint); !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user set by Middleware, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalsUser).(*models.User)
	return user
}

// CurrentUserID returns the authenticated user id set by Middleware.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalsUserID).(uint)
	return id, ok
}

func (m *Manager) setCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
