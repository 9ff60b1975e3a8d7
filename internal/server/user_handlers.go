package server

import (
	"loom/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserPage handles GET /api/users/:username, the public profile: the
// user and their recent posts expanded into threads. No session needed.
func (s *Server) UserPage(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return fail(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", c.Params("username")))
	}

	threads, err := s.assembler.UserThreads(c.UserContext(), user.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"user":    user,
		"threads": threads,
	})
}
