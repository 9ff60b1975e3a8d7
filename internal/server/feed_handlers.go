package server

import (
	"loom/internal/models"
	"loom/internal/session"

	"github.com/gofiber/fiber/v2"
)

// Dashboard handles GET /api/dash: the aggregated feed of threads from
// everyone the caller follows.
func (s *Server) Dashboard(c *fiber.Ctx) error {
	userID, ok := session.CurrentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	threads, err := s.assembler.BuildFeed(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"threads": threads})
}
