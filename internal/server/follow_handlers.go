package server

import (
	"loom/internal/models"
	"loom/internal/session"

	"github.com/gofiber/fiber/v2"
)

// FollowUser handles POST /api/users/:username/follow.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	userID, ok := session.CurrentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	target, err := s.userRepo.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return fail(c, err)
	}
	if target == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", c.Params("username")))
	}
	if target.ID == userID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Cannot follow yourself"))
	}

	follow := &models.Follow{
		FollowerID: userID,
		FolloweeID: target.ID,
		IsAccepted: true,
	}
	if err := s.followRepo.Create(c.UserContext(), follow); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"following": target.Username,
	})
}

// UnfollowUser handles DELETE /api/users/:username/follow.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	userID, ok := session.CurrentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	target, err := s.userRepo.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return fail(c, err)
	}
	if target == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", c.Params("username")))
	}

	if err := s.followRepo.Delete(c.UserContext(), userID, target.ID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"unfollowed": target.Username})
}
