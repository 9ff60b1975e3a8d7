package feed

import (
	"context"
	"log/slog"
	"time"

	"loom/internal/models"
	"loom/internal/observability"
	"loom/internal/repository"
)

// Assembler turns flat rows into the nested Thread aggregates shown on a
// user's dashboard. It holds no per-request state and is safe for
// concurrent use; all reads are idempotent, so a cancelled build leaves
// nothing to clean up.
type Assembler struct {
	posts   repository.PostRepository
	follows repository.FollowRepository
	logger  *slog.Logger
}

// NewAssembler returns an Assembler over the given repositories.
func NewAssembler(posts repository.PostRepository, follows repository.FollowRepository, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{posts: posts, follows: follows, logger: logger}
}

// BuildFeed assembles the dashboard for a user: for each followee, the 50
// most recent posts (newest first within a followee), each expanded into
// a Thread. Threads are interleaved in followee order rather than
// globally re-sorted by time. A user following nobody gets an empty
// feed. Cancellation abandons further per-followee fetches.
func (a *Assembler) BuildFeed(ctx context.Context, userID uint) ([]models.Thread, error) {
	start := time.Now()
	defer func() {
		observability.FeedBuildDuration.Observe(time.Since(start).Seconds())
	}()

	followees, err := a.follows.ListFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	threads := make([]models.Thread, 0, len(followees))
	for _, followeeID := range followees {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		posts, err := a.posts.ListRecent(ctx, followeeID, repository.FeedPostLimit)
		if err != nil {
			return nil, err
		}
		for i := range posts {
			thread, err := a.expand(ctx, &posts[i])
			if err != nil {
				return nil, err
			}
			threads = append(threads, thread)
		}
	}
	return threads, nil
}

// UserThreads expands a single author's recent posts into threads, for
// the public profile page.
func (a *Assembler) UserThreads(ctx context.Context, userID uint) ([]models.Thread, error) {
	posts, err := a.posts.ListRecent(ctx, userID, repository.FeedPostLimit)
	if err != nil {
		return nil, err
	}
	threads := make([]models.Thread, 0, len(posts))
	for i := range posts {
		thread, err := a.expand(ctx, &posts[i])
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// expand builds the Thread for one post. A post without a chain
// reference is a single-entry thread. A chain reference is parsed,
// resolved through a parameterized id-set lookup, and reordered to the
// chain sequence with the referencing post appended last. A malformed
// reference, or a chain id that no longer resolves to a post row,
// degrades the post to a single-entry thread; the reader never sees an
// error for someone else's broken reply chain.
func (a *Assembler) expand(ctx context.Context, post *models.Post) (models.Thread, error) {
	var contents []models.Post

	if post.ThreadRef != "" {
		ids, ok := ParseChain(post.ThreadRef)
		if !ok {
			observability.MalformedChains.Inc()
			a.logger.Warn("malformed thread reference, degrading to single-post thread",
				slog.Uint64("post_id", uint64(post.ID)),
				slog.String("thread_ref", post.ThreadRef),
			)
		} else {
			ancestors, err := a.posts.ListByIDs(ctx, ids)
			if err != nil {
				return models.Thread{}, err
			}
			byID := make(map[uint]models.Post, len(ancestors))
			for _, ancestor := range ancestors {
				byID[ancestor.ID] = ancestor
			}
			ordered := make([]models.Post, 0, len(ids))
			resolved := true
			for _, id := range ids {
				ancestor, found := byID[id]
				if !found {
					resolved = false
					break
				}
				ordered = append(ordered, ancestor)
			}
			if resolved {
				contents = ordered
			} else {
				observability.MalformedChains.Inc()
				a.logger.Warn("thread reference points at missing posts, degrading to single-post thread",
					slog.Uint64("post_id", uint64(post.ID)),
				)
			}
		}
	}

	contents = append(contents, *post)

	tags, err := a.posts.ListTags(ctx, post.ID)
	if err != nil {
		return models.Thread{}, err
	}

	return models.Thread{
		Username: post.User.Username,
		Created:  post.CreatedAt,
		Contents: contents,
		Tags:     tags,
	}, nil
}
