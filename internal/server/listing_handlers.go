package server

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"pawhaven/internal/middleware"
	"pawhaven/internal/models"
	"pawhaven/internal/service"

	"github.com/gofiber/fiber/v2"
)

// searchForm carries the optional feed search fields. The city field keeps
// its historical form name.
type searchForm struct {
	Type      string `json:"type" form:"type" query:"type"`
	City      string `json:"city" form:"city" query:"city"`
	StartDate string `json:"startdate" form:"startdate" query:"startdate"`
	EndDate   string `json:"enddate" form:"enddate" query:"enddate"`
}

// Feed serves the paginated public listing feed, optionally narrowed by the
// search form. An inverted date window is reported in the payload while the
// results fall back to the unfiltered window.
func (s *Server) Feed(c *fiber.Ctx) error {
	page := parsePage(c)

	var form searchForm
	if c.Method() == fiber.MethodPost {
		if err := c.BodyParser(&form); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	} else if err := c.QueryParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid query parameters"))
	}

	filter := service.SearchFilter{
		Type:     strings.TrimSpace(form.Type),
		Location: strings.TrimSpace(form.City),
	}
	var ok bool
	if filter.StartDate, ok = parseDateField(c, form.StartDate, "startdate"); !ok {
		return nil
	}
	if filter.EndDate, ok = parseDateField(c, form.EndDate, "enddate"); !ok {
		return nil
	}

	result, err := s.listingService.Search(c.UserContext(), filter, page, service.FeedPageSize)
	if result == nil {
		return s.respondError(c, err)
	}

	payload := fiber.Map{
		"listings": s.pageToViews(result),
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		payload["error"] = appErr.Message
	}
	return c.JSON(payload)
}

// parseDateField parses an optional YYYY-MM-DD form value. On malformed input
// it writes a 400 response and reports !ok.
func parseDateField(c *fiber.Ctx, value, field string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{
				field: "Invalid date, expected YYYY-MM-DD",
			}))
		return nil, false
	}
	return &t, true
}

// createListingForm is the multipart create-listing request, minus the
// optional photo file.
type createListingForm struct {
	Type        string `json:"type" form:"type"`
	Location    string `json:"location" form:"location"`
	Age         string `json:"age" form:"age"`
	Weight      string `json:"weight" form:"weight"`
	Description string `json:"description" form:"description"`
	StartDate   string `json:"startdate" form:"startdate"`
	EndDate     string `json:"enddate" form:"enddate"`
}

// CreateListing creates a listing owned by the authenticated user. The date
// range is validated before anything is stored; a missing photo falls back to
// the seeded default for the pet type.
func (s *Server) CreateListing(c *fiber.Ctx) error {
	var form createListingForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	fields := make(map[string]string)
	for name, value := range map[string]string{
		"type":        form.Type,
		"location":    form.Location,
		"age":         form.Age,
		"weight":      form.Weight,
		"description": form.Description,
		"startdate":   form.StartDate,
		"enddate":     form.EndDate,
	} {
		if strings.TrimSpace(value) == "" {
			fields[name] = "This field is required"
		}
	}
	age := parseNonNegative(form.Age, "Age", "age", fields)
	weight := parseNonNegative(form.Weight, "Weight", "weight", fields)
	if len(fields) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(fields))
	}

	input := service.CreateListingInput{
		OwnerID:     currentUserID(c),
		Type:        form.Type,
		Location:    form.Location,
		Age:         age,
		Weight:      weight,
		Description: form.Description,
	}
	var ok bool
	if input.StartDate, ok = parseRequiredDate(c, form.StartDate, "startdate"); !ok {
		return nil
	}
	if input.EndDate, ok = parseRequiredDate(c, form.EndDate, "enddate"); !ok {
		return nil
	}

	if upload, err := s.readUpload(c, "photo"); err != nil {
		middleware.ImageUploads.WithLabelValues("rejected").Inc()
		return s.respondError(c, err)
	} else if upload != nil {
		input.Upload = upload
	}

	listing, err := s.listingService.Create(c.UserContext(), input)
	if err != nil {
		if input.Upload != nil {
			middleware.ImageUploads.WithLabelValues("rejected").Inc()
		}
		return s.respondError(c, err)
	}
	if input.Upload != nil {
		middleware.ImageUploads.WithLabelValues("ok").Inc()
	}

	middleware.Logger.InfoContext(c.UserContext(), "listing created",
		"listing_id", listing.ID)

	view := s.listingToView(listing, false)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"listing": view})
}

// parseNonNegative parses a required numeric form value, recording a field
// error for anything that is not a whole number >= 0. Emptiness is reported
// separately by the required-field check.
func parseNonNegative(value, label, field string, fields map[string]string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		fields[field] = label + " must be a non-negative number"
		return 0
	}
	return n
}

func parseRequiredDate(c *fiber.Ctx, value, field string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{
				field: "Invalid date, expected YYYY-MM-DD",
			}))
		return time.Time{}, false
	}
	return t, true
}

// readUpload extracts an optional multipart file into an UploadInput.
// A missing file is not an error; an unreadable one is.
func (s *Server) readUpload(c *fiber.Ctx, field string) (*service.UploadInput, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &service.UploadInput{Filename: fh.Filename, Content: content}, nil
}

// ViewListing returns one listing with its owner, image and replies.
func (s *Server) ViewListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	listing, err := s.listingService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"listing": s.listingToView(listing, true)})
}

type replyForm struct {
	Body string `json:"body" form:"body"`
}

// CreateReply attaches a reply from the authenticated user to a listing.
func (s *Server) CreateReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var form replyForm
	if err := c.BodyParser(&form); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(form.Body) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Reply cannot be empty"))
	}

	reply, err := s.listingService.AddReply(c.UserContext(), id, currentUserID(c), form.Body)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reply": replyToView(*reply)})
}

// DeleteReply removes a reply. Allowed for the reply's author and for the
// owner of the listing it belongs to.
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	reply, err := s.replyRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	listing, err := s.listingRepo.GetByID(c.UserContext(), reply.ListingID)
	if err != nil {
		return s.respondError(c, err)
	}

	uid := currentUserID(c)
	if uid != reply.AuthorID && uid != listing.OwnerID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only delete your own replies"))
	}

	if err := s.listingService.DeleteReply(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteListing removes a listing with its replies and releases its image.
// Only the owner may delete.
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	listing, err := s.listingService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	if listing.OwnerID != currentUserID(c) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only delete your own listings"))
	}

	if err := s.listingService.Delete(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "listing deleted",
		"listing_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}
