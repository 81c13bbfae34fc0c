package server

import (
	"pawhaven/internal/middleware"
	"pawhaven/internal/models"
	"pawhaven/internal/service"
	"pawhaven/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// Home serves a user's public profile: the account summary plus one page of
// the listings they own.
func (s *Server) Home(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userID")
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}

	page, err := s.listingService.OwnerListings(c.UserContext(), userID, parsePage(c))
	if err != nil {
		return s.respondError(c, err)
	}

	// The email is only shown to the account holder.
	includeEmail := currentUserID(c) == userID

	return c.JSON(fiber.Map{
		"user":     s.userToView(user, includeEmail),
		"listings": s.pageToViews(page),
		"total":    page.Total,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

// settingsForm carries the account settings request. Exactly one of the three
// branches applies per request: avatar upload, email change, password change.
type settingsForm struct {
	Email       string `json:"email" form:"email"`
	NowPassword string `json:"nowpassword" form:"nowpassword"`
	Password    string `json:"password" form:"password"`
	RePassword  string `json:"repassword" form:"repassword"`
}

// UpdateSettings updates the authenticated user's account. A multipart photo
// updates the avatar; otherwise a non-empty email field updates the email and
// the password triple updates the password after verifying the current one.
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	uid := currentUserID(c)

	if upload, err := s.readUpload(c, "photo"); err != nil {
		middleware.ImageUploads.WithLabelValues("rejected").Inc()
		return s.respondError(c, err)
	} else if upload != nil {
		return s.updateAvatar(c, uid, upload)
	}

	var form settingsForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	switch {
	case form.Email != "":
		return s.updateEmail(c, uid, form.Email)
	case form.NowPassword != "" || form.Password != "" || form.RePassword != "":
		return s.updatePassword(c, uid, form)
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Fail to upload File"))
	}
}

func (s *Server) updateAvatar(c *fiber.Ctx, uid uint, upload *service.UploadInput) error {
	img, err := s.imageService.Upload(c.UserContext(), *upload)
	if err != nil {
		middleware.ImageUploads.WithLabelValues("rejected").Inc()
		return s.respondError(c, err)
	}
	if err := s.userRepo.UpdateAvatar(c.UserContext(), uid, img.ID); err != nil {
		return s.respondError(c, err)
	}
	middleware.ImageUploads.WithLabelValues("ok").Inc()

	middleware.Logger.InfoContext(c.UserContext(), "avatar updated",
		"image_id", img.ID)
	return c.JSON(fiber.Map{"image": s.imageService.Path(img)})
}

func (s *Server) updateEmail(c *fiber.Ctx, uid uint, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{"email": err.Error()}))
	}
	if err := s.userRepo.UpdateEmail(c.UserContext(), uid, email); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"email": email})
}

func (s *Server) updatePassword(c *fiber.Ctx, uid uint, form settingsForm) error {
	if form.NowPassword == "" || form.Password == "" || form.RePassword == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Password is required."))
	}
	if form.Password != form.RePassword {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Two passwords are inconsistent."))
	}
	if err := validation.ValidatePasswordLength(form.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	user := currentUser(c)
	if user == nil {
		var err error
		user, err = s.userRepo.GetByID(c.UserContext(), uid)
		if err != nil {
			return s.respondError(c, err)
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.NowPassword)); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Wrong password!"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if err := s.userRepo.UpdatePassword(c.UserContext(), uid, string(hash)); err != nil {
		return s.respondError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "password changed")
	return c.JSON(fiber.Map{"status": "ok"})
}
