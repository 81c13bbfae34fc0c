package server

import (
	"pawhaven/internal/captcha"
	"pawhaven/internal/middleware"
	"pawhaven/internal/models"
	appsession "pawhaven/internal/session"
	"pawhaven/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// MsgImagecodeIncorrect is surfaced whenever the submitted CAPTCHA text does
// not match the one held by the session.
const MsgImagecodeIncorrect = "Imagecode Incorrect"

// CaptchaCode generates a fresh CAPTCHA, stores the expected text in the
// session and streams the distorted image as JPEG. Each call replaces the
// previous code, so only the latest image counts.
func (s *Server) CaptchaCode(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return nil
	}

	img, text := s.captcha.Generate()
	if err := appsession.SetImageCode(sess, text); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	buf, err := captcha.EncodeJPEG(img)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(buf)
}

// Register creates a new account. Checks run in a fixed order: structural
// field validation, then the CAPTCHA, then username uniqueness. A duplicate
// username is never revealed to a caller who failed the CAPTCHA.
func (s *Server) Register(c *fiber.Ctx) error {
	var form validation.RegistrationForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if fields := validation.ValidateRegistration(form); len(fields) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(fields))
	}

	sess, err := s.session(c)
	if err != nil {
		return nil
	}
	if form.ImageCode != appsession.ImageCode(sess) {
		middleware.AuthFailures.WithLabelValues("imagecode").Inc()
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(MsgImagecodeIncorrect))
	}

	existing, err := s.userRepo.GetByUsername(c.UserContext(), form.Username)
	if err != nil {
		return s.respondError(c, err)
	}
	if existing != nil {
		middleware.AuthFailures.WithLabelValues("duplicate_user").Inc()
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("User "+form.Username+" is already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	// New accounts start with the seeded generic avatar until they upload one.
	avatarID := models.DefaultImageID
	user := &models.User{
		Username: form.Username,
		Email:    form.Email,
		Password: string(hash),
		ImageID:  &avatarID,
	}
	if err := s.userRepo.Create(c.UserContext(), user); err != nil {
		// A concurrent registration can lose the race after the uniqueness
		// probe above; the repository maps that to the same validation error.
		if statusForError(err) == fiber.StatusBadRequest {
			middleware.AuthFailures.WithLabelValues("duplicate_user").Inc()
			return models.RespondWithError(c, fiber.StatusConflict, err)
		}
		return s.respondError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "user registered",
		"user_id", user.ID, "username", user.Username)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": s.userToView(user, true),
	})
}

// Login authenticates a user. Checks run in a fixed order: structural field
// validation, CAPTCHA, account existence, password. Success rebinds the
// session to the authenticated identity, dropping any prior state.
func (s *Server) Login(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if fields := validation.ValidateLogin(form); len(fields) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(fields))
	}

	sess, err := s.session(c)
	if err != nil {
		return nil
	}
	if form.ImageCode != appsession.ImageCode(sess) {
		middleware.AuthFailures.WithLabelValues("imagecode").Inc()
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(MsgImagecodeIncorrect))
	}

	user, err := s.userRepo.GetByUsername(c.UserContext(), form.Username)
	if err != nil {
		return s.respondError(c, err)
	}
	if user == nil {
		middleware.AuthFailures.WithLabelValues("unknown_user").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Username Does Not Exist"))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)); err != nil {
		middleware.AuthFailures.WithLabelValues("bad_password").Inc()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Password Incorrect"))
	}

	if err := appsession.BindUser(sess, user.ID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(c.UserContext(), "user logged in",
		"user_id", user.ID, "username", user.Username)

	return c.JSON(fiber.Map{
		"user": s.userToView(user, true),
	})
}

// Logout drops the session unconditionally. Safe to call anonymously.
func (s *Server) Logout(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return nil
	}
	if err := appsession.Destroy(sess); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
