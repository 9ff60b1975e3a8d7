package server

import (
	"loom/internal/models"
	"loom/internal/observability"
	"loom/internal/session"
	"loom/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register. A successful registration
// chains straight into authentication, so the caller leaves with a live
// session; responding before re-verifying the credentials would hide a
// write that silently failed.
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.RegisterCredentials
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	creds, err := s.backend.Register(c.UserContext(), req)
	if err != nil {
		if models.IsConflict(err) {
			observability.RegisterConflict.Inc()
		}
		return fail(c, err)
	}

	user, err := s.backend.Authenticate(c.UserContext(), *creds)
	if err != nil {
		return fail(c, err)
	}
	if user == nil {
		// The account was just written; failing to authenticate it means
		// storage is inconsistent, not that the caller got it wrong.
		return fail(c, models.NewInternalError(nil))
	}

	if err := s.sessions.Login(c, user); err != nil {
		return fail(c, err)
	}

	observability.RegisterSuccess.Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
		"next": req.Next,
	})
}

// Login handles POST /api/auth/login. Unknown username and wrong
// password produce the same response, with no timing shortcut for the
// unknown-user path beyond the repository lookup itself.
func (s *Server) Login(c *fiber.Ctx) error {
	var req models.LoginCredentials
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	user, err := s.backend.Authenticate(c.UserContext(), req)
	if err != nil {
		if models.HasCode(err, models.CodeVerifyUnavailable) {
			observability.LoginFailure.WithLabelValues("verify_unavailable").Inc()
		} else {
			observability.LoginFailure.WithLabelValues("storage").Inc()
		}
		return fail(c, err)
	}
	if user == nil {
		observability.LoginFailure.WithLabelValues("bad_credentials").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if err := s.sessions.Login(c, user); err != nil {
		return fail(c, err)
	}

	observability.LoginSuccess.Inc()
	return c.JSON(fiber.Map{
		"user": user,
		"next": req.Next,
	})
}

// Logout handles POST /api/auth/logout. Logging out without a session
// succeeds; there is nothing useful to reject.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/me, returning the authenticated user.
func (s *Server) Me(c *fiber.Ctx) error {
	user := session.CurrentUser(c)
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	return c.JSON(fiber.Map{"user": user})
}
