package repository

import (
	"context"

	"loom/internal/models"

	"gorm.io/gorm"
)

// FeedPostLimit is the hard cap on posts fetched per author for a feed.
const FeedPostLimit = 50

// PostRepository defines persistence operations for posts and tags.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListRecent(ctx context.Context, userID uint, limit int) ([]models.Post, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Post, error)
	ListTags(ctx context.Context, postID uint) ([]string, error)
	FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewStorageError(err)
	}
	return nil
}

// ListRecent returns up to limit posts for the author, newest first.
// The limit is clamped to FeedPostLimit; a non-positive limit selects it.
func (r *postRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > FeedPostLimit {
		limit = FeedPostLimit
	}
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	return posts, nil
}

// ListByIDs fetches posts by id set for chain expansion. Every id is
// bound as a query parameter; the ids themselves never reach the SQL
// text. An empty set returns an empty result without touching the store.
func (r *postRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id IN ?", ids).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	return posts, nil
}

func (r *postRepository) ListTags(ctx context.Context, postID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Tag{}).
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id = ?", postID).
		Order("tags.name").
		Pluck("tags.name", &names).Error
	if err != nil {
		return nil, models.NewStorageError(err)
	}
	return names, nil
}

// FindOrCreateTags resolves tag names to rows, creating missing ones.
func (r *postRepository) FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := r.db.WithContext(ctx).
			Where(models.Tag{Name: name}).
			FirstOrCreate(&tag).Error
		if err != nil {
			return nil, models.NewStorageError(err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
