package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"loom/internal/models"
	"loom/internal/repository"
)

// Backend orchestrates registration and authentication against the user
// store and the password hasher. It holds no per-request state and is
// safe for concurrent use. Session frameworks should depend only on the
// Authenticator interface below.
type Backend struct {
	users  repository.UserRepository
	hasher *Hasher
}

// Authenticator is the narrow contract a session layer needs: resolve
// credentials to a user, and resolve a persisted id back to a user.
// A nil user with a nil error means "no such identity" and must not be
// distinguished further, to avoid account enumeration.
type Authenticator interface {
	Authenticate(ctx context.Context, creds models.LoginCredentials) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// NewBackend returns a Backend over the given store and hasher.
func NewBackend(users repository.UserRepository, hasher *Hasher) *Backend {
	return &Backend{users: users, hasher: hasher}
}

// Register creates an account and returns the login credentials for it,
// so the caller can chain directly into Authenticate rather than assume
// the write succeeded silently. A taken username or email yields a
// Conflict error. The advisory pre-check keeps the common case cheap;
// the insert itself still surfaces a constraint violation as Conflict,
// which closes the race between two concurrent registrations.
func (b *Backend) Register(ctx context.Context, creds models.RegisterCredentials) (*models.LoginCredentials, error) {
	existing, err := b.users.FindByUsernameOrEmail(ctx, creds.Username, creds.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Credentials already in use")
	}

	hash, err := b.hasher.Hash(ctx, creds.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: creds.Username,
		Email:    creds.Email,
		Password: hash,
	}
	if err := b.users.Create(ctx, user); err != nil {
		return nil, err
	}

	login := models.LoginFromRegister(creds)
	return &login, nil
}

// Authenticate resolves credentials to a user. Unknown username and
// wrong password both return (nil, nil); only storage or verification
// subsystem failures produce an error.
func (b *Backend) Authenticate(ctx context.Context, creds models.LoginCredentials) (*models.User, error) {
	user, err := b.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	ok, err := b.hasher.Verify(ctx, creds.Password, user.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return user, nil
}

// GetUser resolves a persisted identity id. A vanished user is (nil, nil).
func (b *Backend) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := b.users.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SessionAuthHash derives the per-user value a session binds to. It is a
// digest of the stored password hash, so any password change invalidates
// every previously issued session for the user without a revocation list.
func SessionAuthHash(user *models.User) string {
	sum := sha256.Sum256([]byte(user.Password))
	return hex.EncodeToString(sum[:])
}
