package repository

import (
	"context"
	"testing"
	"time"

	"loom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "bob", Email: "b@x.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		post := &models.Post{
			UserID:    user.ID,
			Body:      "post",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, post))
	}

	posts, err := repo.ListRecent(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	// Newest first, with the author preloaded.
	assert.True(t, posts[0].CreatedAt.After(posts[1].CreatedAt))
	assert.Equal(t, "bob", posts[0].User.Username)
}

func TestPostRepository_ListRecentClampsLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "bob", Email: "b@x.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	for i := 0; i < FeedPostLimit+5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Post{UserID: user.ID, Body: "post"}))
	}

	posts, err := repo.ListRecent(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, posts, FeedPostLimit)

	posts, err = repo.ListRecent(ctx, user.ID, FeedPostLimit*2)
	require.NoError(t, err)
	assert.Len(t, posts, FeedPostLimit)
}

func TestPostRepository_ListByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "bob", Email: "b@x.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	p1 := &models.Post{UserID: user.ID, Body: "one"}
	p2 := &models.Post{UserID: user.ID, Body: "two"}
	require.NoError(t, repo.Create(ctx, p1))
	require.NoError(t, repo.Create(ctx, p2))

	posts, err := repo.ListByIDs(ctx, []uint{p1.ID, p2.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	// An empty id set never touches the store.
	posts, err = repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostRepository_Tags(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "bob", Email: "b@x.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	tags, err := repo.FindOrCreateTags(ctx, []string{"go", "music"})
	require.NoError(t, err)
	require.Len(t, tags, 2)

	// FindOrCreate is idempotent per name.
	again, err := repo.FindOrCreateTags(ctx, []string{"go"})
	require.NoError(t, err)
	assert.Equal(t, tags[0].ID, again[0].ID)

	post := &models.Post{UserID: user.ID, Body: "tagged", Tags: tags}
	require.NoError(t, repo.Create(ctx, post))

	names, err := repo.ListTags(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "music"}, names)
}

func TestFollowRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	alice := &models.User{Username: "alice", Email: "a@x.com", Password: "hash"}
	bob := &models.User{Username: "bob", Email: "b@x.com", Password: "hash"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	t.Run("Create", func(t *testing.T) {
		err := repo.Create(ctx, &models.Follow{
			FollowerID: alice.ID, FolloweeID: bob.ID, IsAccepted: true,
		})
		require.NoError(t, err)

		exists, err := repo.Exists(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("DuplicateIsConflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.Follow{
			FollowerID: alice.ID, FolloweeID: bob.ID, IsAccepted: true,
		})
		require.Error(t, err)
		assert.True(t, models.IsConflict(err))
	})

	t.Run("ListFolloweeIDs", func(t *testing.T) {
		ids, err := repo.ListFolloweeIDs(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{bob.ID}, ids)

		// Follows run one way.
		ids, err = repo.ListFolloweeIDs(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, alice.ID, bob.ID))

		exists, err := repo.Exists(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		err = repo.Delete(ctx, alice.ID, bob.ID)
		require.Error(t, err)
		assert.True(t, models.IsNotFound(err))
	})
}
