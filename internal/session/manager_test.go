package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loom/internal/auth"
	"loom/internal/cache"
	"loom/internal/models"
	"loom/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// backendStub resolves users from a map, standing in for the auth backend.
type backendStub struct {
	users map[uint]*models.User
}

func (b *backendStub) Authenticate(_ context.Context, creds models.LoginCredentials) (*models.User, error) {
	for _, user := range b.users {
		if user.Username == creds.Username {
			return user, nil
		}
	}
	return nil, nil
}

func (b *backendStub) GetUser(_ context.Context, id uint) (*models.User, error) {
	return b.users[id], nil
}

func newTestApp(t *testing.T) (*fiber.App, *Manager, *backendStub) {
	t.Helper()
	store := NewMemoryStore(0)
	t.Cleanup(store.Close)

	backend := &backendStub{users: map[uint]*models.User{
		1: {ID: 1, Username: "alice", Password: "storedhash"},
	}}
	m := NewManager(store, backend, time.Hour, false, nil)

	app := fiber.New()
	app.Use(m.Middleware())
	app.Post("/login", func(c *fiber.Ctx) error {
		if err := m.Login(c, backend.users[1]); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		if err := m.Logout(c); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/whoami", RequireAuth(), func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		return c.JSON(fiber.Map{"username": user.Username})
	})
	return app, m, backend
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestManager_LoginAndResolve(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestManager_AnonymousRejected(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_UnknownTokenRejected(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_PasswordChangeInvalidatesSession(t *testing.T) {
	app, _, backend := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)

	// The stored password hash changes, so the session auth hash no
	// longer matches and the session must die.
	backend.users[1].Password = "newhash"

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_DeletedUserInvalidatesSession(t *testing.T) {
	app, _, backend := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)

	delete(backend.users, 1)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Runs the middleware against the real backend and user repository with
// the redis cache enabled. The first request after login fills the cache;
// the second is served from it and must carry the same password hash, or
// the auth-hash check would kill the session.
func TestManager_SurvivesCachedUserRead(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	users := repository.NewUserRepository(db)
	hasher := auth.NewHasher(1, 0)
	t.Cleanup(hasher.Close)
	backend := auth.NewBackend(users, hasher)

	user := &models.User{Username: "alice", Email: "a@x.com", Password: "$2a$10$storedhash"}
	require.NoError(t, users.Create(context.Background(), user))

	store := NewMemoryStore(0)
	t.Cleanup(store.Close)
	m := NewManager(store, backend, time.Hour, false, nil)

	app := fiber.New()
	app.Use(m.Middleware())
	app.Post("/login", func(c *fiber.Ctx) error {
		if err := m.Login(c, user); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/whoami", RequireAuth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"username": CurrentUser(c).Username})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(cookie)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.True(t, mr.Exists(cache.UserKey(user.ID)))
}

func TestManager_Logout(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out twice is fine.
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
