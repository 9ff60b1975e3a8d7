// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"loom/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seed populates the database with test data: users following each
// other, posts, reply chains and tags. All seeded users share the
// password "password123".
func Seed(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // weak randomness is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("warning: could not clear all existing data, continuing anyway")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("%d users created", len(users))

	if err := createFollows(db, r, users); err != nil {
		return fmt.Errorf("failed to create follows: %w", err)
	}

	posts, err := createPosts(db, r, users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("%d posts created", len(posts))

	log.Println("database seeding completed")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("clearing existing data...")
	sql := `TRUNCATE TABLE post_tags, tags, posts, follows, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(db *gorm.DB, n int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		username := strings.ToLower(gofakeit.Username())
		if len(username) < 3 {
			username += "user"
		}
		user := models.User{
			Username: fmt.Sprintf("%s%d", username, i),
			Email:    fmt.Sprintf("%d_%s", i, gofakeit.Email()),
			Password: string(hash),
			Bio:      gofakeit.Sentence(8),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createFollows gives each user a handful of followees.
func createFollows(db *gorm.DB, r *rand.Rand, users []models.User) error {
	for _, user := range users {
		n := 2 + r.Intn(5)
		seen := map[uint]bool{user.ID: true}
		for j := 0; j < n && len(seen) < len(users); j++ {
			target := users[r.Intn(len(users))]
			if seen[target.ID] {
				continue
			}
			seen[target.ID] = true
			follow := models.Follow{
				FollowerID: user.ID,
				FolloweeID: target.ID,
				IsAccepted: true,
			}
			if err := db.Create(&follow).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createPosts(db *gorm.DB, r *rand.Rand, users []models.User, n int) ([]models.Post, error) {
	tagPool := []string{"go", "music", "food", "travel", "art", "gaming", "books", "science"}

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[r.Intn(len(users))]
		post := models.Post{
			UserID:  author.ID,
			Body:    gofakeit.Paragraph(1, 3, 8, " "),
			Summary: gofakeit.Sentence(5),
		}

		// Roughly a third of posts reply into an existing thread.
		if len(posts) > 0 && r.Intn(3) == 0 {
			parent := posts[r.Intn(len(posts))]
			post.ThreadRef = childChainRef(&parent)
		}

		if r.Intn(2) == 0 {
			name := tagPool[r.Intn(len(tagPool))]
			var tag models.Tag
			if err := db.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
				return nil, err
			}
			post.Tags = []models.Tag{tag}
		}

		if err := db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// childChainRef builds the thread reference a reply to parent carries:
// the parent's own chain with the parent appended.
func childChainRef(parent *models.Post) string {
	id := strconv.FormatUint(uint64(parent.ID), 10)
	if parent.ThreadRef == "" {
		return id
	}
	return parent.ThreadRef + "/" + id
}
