package service

import (
	"context"
	"strings"
	"time"

	"pawhaven/internal/models"
	"pawhaven/internal/repository"
)

const (
	// FeedPageSize is the page size of the public listing feed.
	FeedPageSize = 6
	// ProfilePageSize is the page size of a user's owned-listings feed.
	ProfilePageSize = 20

	// MsgEndBeforeStart is surfaced verbatim for invalid date ranges, both
	// when creating a listing and when searching with an inverted window.
	MsgEndBeforeStart = "Oops! End date should be after start date :)"
)

// Date window bounds used when a search does not constrain dates. Effectively
// unbounded for any realistic listing.
var (
	WindowMin = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	WindowMax = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// SearchFilter is the typed search form. Nil dates leave the window open on
// that side.
type SearchFilter struct {
	Type      string
	Location  string
	StartDate *time.Time
	EndDate   *time.Time
}

// Page is one contiguous slice of a recency-ordered listing result set.
// There is no cursor stability: a listing created between two fetches can
// shift items across pages.
type Page struct {
	Items   []models.Listing `json:"items"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// CreateListingInput carries a validated create-listing request.
type CreateListingInput struct {
	OwnerID     uint
	Type        string
	Location    string
	Age         int
	Weight      int
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Upload      *UploadInput
}

// ListingService implements listing search, creation, viewing and the
// reply/delete cascades.
type ListingService struct {
	listings repository.ListingRepository
	replies  repository.ReplyRepository
	images   repository.ImageRepository
	imageSvc *ImageService
}

// NewListingService wires the listing service to its repositories.
func NewListingService(
	listings repository.ListingRepository,
	replies repository.ReplyRepository,
	images repository.ImageRepository,
	imageSvc *ImageService,
) *ListingService {
	return &ListingService{
		listings: listings,
		replies:  replies,
		images:   images,
		imageSvc: imageSvc,
	}
}

// Search returns one page of listings matching the filter, most recent
// first. An inverted date window yields a domain error AND the results for
// the unbounded default window: callers surface the message but still render
// the fallback result set. Page indexes below 1 or past the last page clamp
// to page 1.
func (s *ListingService) Search(ctx context.Context, filter SearchFilter, page, perPage int) (*Page, error) {
	repoFilter := repository.ListingFilter{
		Type:        filter.Type,
		Location:    filter.Location,
		WindowStart: WindowMin,
		WindowEnd:   WindowMax,
	}
	if filter.StartDate != nil {
		repoFilter.WindowStart = *filter.StartDate
	}
	if filter.EndDate != nil {
		repoFilter.WindowEnd = *filter.EndDate
	}

	var domainErr error
	if repoFilter.WindowEnd.Before(repoFilter.WindowStart) {
		domainErr = models.NewValidationError(MsgEndBeforeStart)
		repoFilter.WindowStart = WindowMin
		repoFilter.WindowEnd = WindowMax
	}

	result, err := s.fetchPage(ctx, repoFilter, page, perPage)
	if err != nil {
		return nil, err
	}
	return result, domainErr
}

// OwnerListings returns one page of the listings owned by a user.
func (s *ListingService) OwnerListings(ctx context.Context, ownerID uint, page int) (*Page, error) {
	total, err := s.listings.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	page = clampPage(page, total, ProfilePageSize)
	items, err := s.listings.GetByOwner(ctx, ownerID, ProfilePageSize, (page-1)*ProfilePageSize)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PerPage: ProfilePageSize}, nil
}

func (s *ListingService) fetchPage(ctx context.Context, f repository.ListingFilter, page, perPage int) (*Page, error) {
	total, err := s.listings.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	page = clampPage(page, total, perPage)
	items, err := s.listings.Find(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// clampPage folds out-of-range page indexes back to page 1.
func clampPage(page int, total int64, perPage int) int {
	if page < 1 {
		return 1
	}
	if int64((page-1)*perPage) >= total {
		return 1
	}
	return page
}

// Create persists a new listing. The date range is checked before anything
// is written; type and location are normalized to lowercase so searches are
// case-insensitive on both sides.
func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (*models.Listing, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, models.NewValidationError(MsgEndBeforeStart)
	}
	if in.Age < 0 || in.Weight < 0 {
		return nil, models.NewValidationError("Age and weight must be non-negative")
	}

	imageID := DefaultImageID(in.Type)
	if in.Upload != nil && len(in.Upload.Content) > 0 {
		img, err := s.imageSvc.Upload(ctx, *in.Upload)
		if err != nil {
			return nil, err
		}
		imageID = img.ID
	}

	listing := &models.Listing{
		OwnerID:     in.OwnerID,
		Type:        strings.ToLower(in.Type),
		Location:    strings.ToLower(in.Location),
		Age:         in.Age,
		Weight:      in.Weight,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		ImageID:     &imageID,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Get loads a listing with its owner, image and replies.
func (s *ListingService) Get(ctx context.Context, id uint) (*models.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

// Delete removes a listing and cascades: all its replies go, and its image
// reference is released (seeded defaults are kept by the repository).
func (s *ListingService) Delete(ctx context.Context, id uint) error {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.replies.DeleteByListing(ctx, id); err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}
	if listing.ImageID != nil {
		if err := s.images.Delete(ctx, *listing.ImageID); err != nil {
			return err
		}
	}
	return nil
}

// AddReply attaches a reply to an existing listing.
func (s *ListingService) AddReply(ctx context.Context, listingID, authorID uint, body string) (*models.Reply, error) {
	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return nil, err
	}
	reply := &models.Reply{
		ListingID: listingID,
		AuthorID:  authorID,
		Body:      body,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Replies lists a listing's replies oldest first.
func (s *ListingService) Replies(ctx context.Context, listingID uint) ([]models.Reply, error) {
	return s.replies.GetByListing(ctx, listingID)
}

// DeleteReply removes a single reply by id.
func (s *ListingService) DeleteReply(ctx context.Context, replyID uint) error {
	return s.replies.Delete(ctx, replyID)
}
