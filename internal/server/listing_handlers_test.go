package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawhaven/internal/models"
	"pawhaven/internal/repository"
	"pawhaven/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func defaultWindowFilter() repository.ListingFilter {
	return repository.ListingFilter{
		WindowStart: service.WindowMin,
		WindowEnd:   service.WindowMax,
	}
}

// asOwner injects an authenticated identity without driving the session flow.
func asOwner(id uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		return c.Next()
	}
}

func makeListings(n int) []models.Listing {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := make([]models.Listing, n)
	for i := range items {
		items[i] = models.Listing{
			ID:        uint(i + 1),
			OwnerID:   1,
			Type:      "dog",
			Location:  "austin",
			StartDate: start,
			EndDate:   start.AddDate(0, 1, 0),
		}
	}
	return items
}

type feedResponse struct {
	Listings []listingView `json:"listings"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PerPage  int           `json:"per_page"`
	Error    string        `json:"error"`
}

func decodeFeed(t *testing.T, resp *http.Response) feedResponse {
	t.Helper()
	var body feedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestFeed_FirstPage(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Get("/", s.Feed)
	app.Get("/:page<int>", s.Feed)

	mocks.listings.On("Count", mock.Anything, defaultWindowFilter()).Return(int64(13), nil)
	mocks.listings.On("Find", mock.Anything, defaultWindowFilter(), service.FeedPageSize, 0).
		Return(makeListings(6), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeFeed(t, resp)
	assert.Len(t, body.Listings, 6)
	assert.Equal(t, int64(13), body.Total)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, service.FeedPageSize, body.PerPage)
	assert.Empty(t, body.Error)
}

func TestFeed_SecondPageOffset(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Get("/", s.Feed)
	app.Get("/:page<int>", s.Feed)

	mocks.listings.On("Count", mock.Anything, defaultWindowFilter()).Return(int64(13), nil)
	mocks.listings.On("Find", mock.Anything, defaultWindowFilter(), service.FeedPageSize, 6).
		Return(makeListings(6), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/2", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeFeed(t, resp).Page)
	mocks.listings.AssertExpectations(t)
}

func TestFeed_PageBeyondLastClampsToFirst(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Get("/:page<int>", s.Feed)

	mocks.listings.On("Count", mock.Anything, defaultWindowFilter()).Return(int64(7), nil)
	mocks.listings.On("Find", mock.Anything, defaultWindowFilter(), service.FeedPageSize, 0).
		Return(makeListings(6), nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/99", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeFeed(t, resp).Page)
	mocks.listings.AssertExpectations(t)
}

func TestFeed_SearchNarrowsFilter(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/", s.Feed)

	want := defaultWindowFilter()
	want.Type = "Dog"
	want.Location = "Austin"
	mocks.listings.On("Count", mock.Anything, want).Return(int64(1), nil)
	mocks.listings.On("Find", mock.Anything, want, service.FeedPageSize, 0).
		Return(makeListings(1), nil)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/", map[string]string{
		"type": "Dog",
		"city": "Austin",
	}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeFeed(t, resp).Listings, 1)
	mocks.listings.AssertExpectations(t)
}

func TestFeed_InvertedWindowFallsBack(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/", s.Feed)

	// the fallback result set uses the unbounded default window
	mocks.listings.On("Count", mock.Anything, defaultWindowFilter()).Return(int64(2), nil)
	mocks.listings.On("Find", mock.Anything, defaultWindowFilter(), service.FeedPageSize, 0).
		Return(makeListings(2), nil)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/", map[string]string{
		"startdate": "2024-05-10",
		"enddate":   "2024-01-01",
	}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeFeed(t, resp)
	assert.Equal(t, "Oops! End date should be after start date :)", body.Error)
	assert.Len(t, body.Listings, 2)
	mocks.listings.AssertExpectations(t)
}

func TestFeed_MalformedDate(t *testing.T) {
	s, _ := newTestServer(t)
	app := fiber.New()
	app.Post("/", s.Feed)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/", map[string]string{
		"startdate": "05/10/2024",
	}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp).Fields, "startdate")
}

func validCreateListing() map[string]string {
	return map[string]string{
		"type":        "Dog",
		"location":    "Austin",
		"age":         "3",
		"weight":      "20",
		"description": "Friendly golden retriever",
		"startdate":   "2024-03-01",
		"enddate":     "2024-04-01",
	}
}

func TestCreateListing_EndBeforeStart(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/create", asOwner(1), s.CreateListing)

	body := validCreateListing()
	body["startdate"] = "2024-04-01"
	body["enddate"] = "2024-03-01"

	resp, err := app.Test(jsonRequest(http.MethodPost, "/create", body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Oops! End date should be after start date :)", decodeError(t, resp).Error)
	mocks.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mocks.images.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateListing_DefaultDogImage(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/create", asOwner(1), s.CreateListing)

	mocks.listings.On("Create", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.OwnerID == 1 &&
			l.Type == "dog" && l.Location == "austin" &&
			l.ImageID != nil && *l.ImageID == models.DefaultDogImageID
	})).Return(nil)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/create", validCreateListing()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	mocks.listings.AssertExpectations(t)
}

func TestCreateListing_MissingFields(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/create", asOwner(1), s.CreateListing)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/create", map[string]string{
		"description": "no type, no dates",
	}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decodeError(t, resp)
	assert.Contains(t, errBody.Fields, "type")
	assert.Contains(t, errBody.Fields, "location")
	assert.Contains(t, errBody.Fields, "age")
	assert.Contains(t, errBody.Fields, "weight")
	assert.Contains(t, errBody.Fields, "startdate")
	assert.Contains(t, errBody.Fields, "enddate")
	mocks.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateListing_RejectsNegativeAgeWeight(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/create", asOwner(1), s.CreateListing)

	form := validCreateListing()
	form["age"] = "-3"
	form["weight"] = "-20"

	resp, err := app.Test(jsonRequest(http.MethodPost, "/create", form))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decodeError(t, resp)
	assert.Equal(t, "Age must be a non-negative number", errBody.Fields["age"])
	assert.Equal(t, "Weight must be a non-negative number", errBody.Fields["weight"])
	mocks.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestViewListing_NotFound(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Get("/ViewPost/:id", s.ViewListing)

	mocks.listings.On("GetByID", mock.Anything, uint(42)).
		Return(nil, models.NewNotFoundError("Listing", uint(42)))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ViewPost/42", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewListing_IncludesReplies(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Get("/ViewPost/:id", s.ViewListing)

	listing := makeListings(1)[0]
	listing.Owner = models.User{ID: 1, Username: "alice"}
	listing.Replies = []models.Reply{
		{ID: 1, ListingID: listing.ID, AuthorID: 2, Body: "Happy to help!", Author: models.User{ID: 2, Username: "bob"}},
	}
	mocks.listings.On("GetByID", mock.Anything, listing.ID).Return(&listing, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ViewPost/1", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Listing listingView `json:"listing"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alice", body.Listing.Owner)
	require.Len(t, body.Listing.Replies, 1)
	assert.Equal(t, "bob", body.Listing.Replies[0].Author)
}

func TestCreateReply_EmptyBody(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/ViewPost/:id", asOwner(2), s.CreateReply)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/ViewPost/1", map[string]string{"body": "   "}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	mocks.replies.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReply_Success(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/ViewPost/:id", asOwner(2), s.CreateReply)

	listing := makeListings(1)[0]
	mocks.listings.On("GetByID", mock.Anything, listing.ID).Return(&listing, nil)
	mocks.replies.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Reply) bool {
		return r.ListingID == listing.ID && r.AuthorID == 2 && r.Body == "I can take him in"
	})).Return(nil)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/ViewPost/1", map[string]string{"body": "I can take him in"}))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	mocks.replies.AssertExpectations(t)
}

func TestDeleteListing_OwnerOnly(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/DeletePost/:id", asOwner(9), s.DeleteListing)

	listing := makeListings(1)[0] // owned by user 1
	mocks.listings.On("GetByID", mock.Anything, listing.ID).Return(&listing, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/DeletePost/1", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	mocks.listings.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	mocks.replies.AssertNotCalled(t, "DeleteByListing", mock.Anything, mock.Anything)
}

func TestDeleteListing_Cascade(t *testing.T) {
	s, mocks := newTestServer(t)
	app := fiber.New()
	app.Post("/DeletePost/:id", asOwner(1), s.DeleteListing)

	imageID := uint(9)
	listing := makeListings(1)[0]
	listing.ImageID = &imageID

	mocks.listings.On("GetByID", mock.Anything, listing.ID).Return(&listing, nil)
	mocks.replies.On("DeleteByListing", mock.Anything, listing.ID).Return(nil)
	mocks.listings.On("Delete", mock.Anything, listing.ID).Return(nil)
	mocks.images.On("Delete", mock.Anything, imageID).Return(nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/DeletePost/1", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	mocks.listings.AssertExpectations(t)
	mocks.replies.AssertExpectations(t)
	mocks.images.AssertExpectations(t)
}

func TestDeleteReply_AuthorOrListingOwner(t *testing.T) {
	reply := &models.Reply{ID: 11, ListingID: 1, AuthorID: 4, Body: "hello"}

	tests := []struct {
		name           string
		requester      uint
		expectedStatus int
		expectDelete   bool
	}{
		{name: "Author", requester: 4, expectedStatus: http.StatusNoContent, expectDelete: true},
		{name: "Listing Owner", requester: 1, expectedStatus: http.StatusNoContent, expectDelete: true},
		{name: "Stranger", requester: 9, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mocks := newTestServer(t)
			app := fiber.New()
			app.Post("/DeleteReply/:id", asOwner(tt.requester), s.DeleteReply)

			listing := makeListings(1)[0] // owned by user 1
			mocks.replies.On("GetByID", mock.Anything, reply.ID).Return(reply, nil)
			mocks.listings.On("GetByID", mock.Anything, listing.ID).Return(&listing, nil)
			if tt.expectDelete {
				mocks.replies.On("Delete", mock.Anything, reply.ID).Return(nil)
			}

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/DeleteReply/11", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if !tt.expectDelete {
				mocks.replies.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			}
		})
	}
}
