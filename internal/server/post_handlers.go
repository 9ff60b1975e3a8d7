package server

import (
	"loom/internal/feed"
	"loom/internal/models"
	"loom/internal/observability"
	"loom/internal/session"
	"loom/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts. A reply carries thread_ref, the
// chain of ancestor post ids; it is validated here so a malformed chain
// never reaches storage from our own write path.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, ok := session.CurrentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	var req struct {
		Body      string   `json:"body"`
		Summary   string   `json:"summary"`
		ThreadRef string   `json:"thread_ref"`
		Tags      []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidatePostBody(req.Body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	for _, name := range req.Tags {
		if err := validation.ValidateTagName(name); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}
	if req.ThreadRef != "" {
		ids, parsed := feed.ParseChain(req.ThreadRef)
		if !parsed {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid thread reference"))
		}
		ancestors, err := s.postRepo.ListByIDs(c.UserContext(), ids)
		if err != nil {
			return fail(c, err)
		}
		if len(ancestors) != len(ids) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Thread reference points at unknown posts"))
		}
	}

	post := &models.Post{
		UserID:    userID,
		Body:      req.Body,
		Summary:   req.Summary,
		ThreadRef: req.ThreadRef,
	}
	if len(req.Tags) > 0 {
		tags, err := s.postRepo.FindOrCreateTags(c.UserContext(), req.Tags)
		if err != nil {
			return fail(c, err)
		}
		post.Tags = tags
	}

	if err := s.postRepo.Create(c.UserContext(), post); err != nil {
		return fail(c, err)
	}

	observability.PostsCreated.Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}
