package server

import (
	"errors"

	"pawhaven/internal/middleware"
	"pawhaven/internal/models"
	appsession "pawhaven/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

func humanizeParam(param string) string {
	switch param {
	case "id":
		return "ID"
	case "userID":
		return "user ID"
	}
	return param
}

// parsePage reads the optional page route parameter. Anything missing or
// non-numeric means page 1; out-of-range values are clamped downstream.
func parsePage(c *fiber.Ctx) int {
	page, err := c.ParamsInt("page")
	if err != nil {
		return 1
	}
	return page
}

// session returns the request's session. A storage failure here is fatal for
// the request; the 500 response is already written when err is non-nil.
func (s *Server) session(c *fiber.Ctx) (*session.Session, error) {
	sess, err := s.sessions.Get(c)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
		return nil, errResponseWritten
	}
	return sess, nil
}

// ResolveIdentity loads the session and, when it carries a user id that still
// resolves to a stored user, records the identity in locals. A session whose
// user no longer exists is treated as anonymous; the failure is logged, never
// surfaced.
func (s *Server) ResolveIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.sessions.Get(c)
		if err != nil {
			middleware.Logger.Warn("session load failed", "error", err.Error())
			return c.Next()
		}

		if id, ok := appsession.UserID(sess); ok {
			user, err := s.userRepo.GetByID(c.UserContext(), id)
			if err != nil || user == nil {
				middleware.Logger.Warn("session user lookup failed",
					"user_id", id)
			} else {
				c.Locals("userID", id)
				c.Locals("currentUser", user)
			}
		}
		return c.Next()
	}
}

// LoginRequired rejects requests whose session did not resolve to a user.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userID").(uint); !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Login required"))
		}
		return c.Next()
	}
}

// currentUserID returns the authenticated user's id. Only valid behind
// LoginRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// currentUser returns the resolved user record, if the identity middleware
// loaded one.
func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals("currentUser").(*models.User)
	return u
}

// respondError maps an application error to its HTTP status and writes the
// JSON body.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusForError(err), err)
}

func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
