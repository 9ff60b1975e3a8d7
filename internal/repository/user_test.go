package repository

import (
	"context"
	"testing"

	"loom/internal/cache"
	"loom/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Follow{},
		&models.Tag{},
	)
	require.NoError(t, err)
	return db
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "a@x.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	fetched, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", fetched.Username)

	_, err = repo.GetByID(ctx, 9999)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestUserRepository_GetByUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{
		Username: "alice", Email: "a@x.com", Password: "hash",
	}))

	user, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@x.com", user.Email)

	// Unknown username is a nil result, not an error.
	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_FindByUsernameOrEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{
		Username: "alice", Email: "a@x.com", Password: "hash",
	}))

	byName, err := repo.FindByUsernameOrEmail(ctx, "alice", "other@x.com")
	require.NoError(t, err)
	assert.NotNil(t, byName)

	byEmail, err := repo.FindByUsernameOrEmail(ctx, "bob", "a@x.com")
	require.NoError(t, err)
	assert.NotNil(t, byEmail)

	neither, err := repo.FindByUsernameOrEmail(ctx, "bob", "b@x.com")
	require.NoError(t, err)
	assert.Nil(t, neither)
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{
		Username: "alice", Email: "a@x.com", Password: "hash",
	}))

	err := repo.Create(ctx, &models.User{
		Username: "alice", Email: "other@x.com", Password: "hash",
	})
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))

	err = repo.Create(ctx, &models.User{
		Username: "bob", Email: "a@x.com", Password: "hash",
	})
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
}

func TestUserRepository_CacheRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	user := &models.User{Username: "alice", Email: "a@x.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	first, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.UserKey(user.ID)))

	// Second read is served from the cache and must round-trip every
	// column. Password in particular: models.User hides it from API
	// JSON, and a cached read that dropped it would break session
	// auth-hash checks downstream.
	second, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Username, second.Username)
	assert.Equal(t, first.Email, second.Email)
	assert.Equal(t, "hash", second.Password)

	// Update invalidates the cached row.
	first.Bio = "updated"
	require.NoError(t, repo.Update(ctx, first))
	assert.False(t, mr.Exists(cache.UserKey(user.ID)))
}
