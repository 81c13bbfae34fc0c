package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pawhaven/internal/captcha"
	"pawhaven/internal/config"
	"pawhaven/internal/models"
	"pawhaven/internal/repository"
	"pawhaven/internal/service"
	appsession "pawhaven/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id uint, email string) error {
	args := m.Called(ctx, id, email)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateAvatar(ctx context.Context, id uint, imageID uint) error {
	args := m.Called(ctx, id, imageID)
	return args.Error(0)
}

// MockListingRepository is a mock of the ListingRepository interface
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingRepository) Find(ctx context.Context, filter repository.ListingFilter, limit, offset int) ([]models.Listing, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingRepository) Count(ctx context.Context, filter repository.ListingFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockListingRepository) GetByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockListingRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockReplyRepository is a mock of the ReplyRepository interface
type MockReplyRepository struct {
	mock.Mock
}

func (m *MockReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	args := m.Called(ctx, reply)
	return args.Error(0)
}

func (m *MockReplyRepository) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reply), args.Error(1)
}

func (m *MockReplyRepository) GetByListing(ctx context.Context, listingID uint) ([]models.Reply, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reply), args.Error(1)
}

func (m *MockReplyRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReplyRepository) DeleteByListing(ctx context.Context, listingID uint) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

// MockImageRepository is a mock of the ImageRepository interface
type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(ctx context.Context, image *models.Image) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockImageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Image), args.Error(1)
}

func (m *MockImageRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// testMocks bundles the repository mocks behind a test Server.
type testMocks struct {
	users    *MockUserRepository
	listings *MockListingRepository
	replies  *MockReplyRepository
	images   *MockImageRepository
}

// newTestServer builds a Server with mocked repositories, an in-memory
// session store and an upload directory under t.TempDir().
func newTestServer(t *testing.T) (*Server, *testMocks) {
	t.Helper()

	mocks := &testMocks{
		users:    new(MockUserRepository),
		listings: new(MockListingRepository),
		replies:  new(MockReplyRepository),
		images:   new(MockImageRepository),
	}

	cfg := &config.Config{
		Port:      "0",
		UploadDir: t.TempDir(),
		StaticDir: t.TempDir(),
	}
	s := &Server{
		config:      cfg,
		sessions:    session.New(),
		captcha:     captcha.NewGenerator(),
		userRepo:    mocks.users,
		listingRepo: mocks.listings,
		replyRepo:   mocks.replies,
		imageRepo:   mocks.images,
	}
	s.imageService = service.NewImageService(mocks.images, cfg)
	s.listingService = service.NewListingService(mocks.listings, mocks.replies, mocks.images, s.imageService)

	return s, mocks
}

// registerSessionSeeder adds a test-only route that writes the given session
// values, so tests can obtain a primed session cookie.
func registerSessionSeeder(app *fiber.App, s *Server) {
	app.Get("/test/session", func(c *fiber.Ctx) error {
		sess, err := s.sessions.Get(c)
		if err != nil {
			return err
		}
		if code := c.Query("code"); code != "" {
			sess.Set(appsession.KeyImageCode, code)
		}
		if uid := c.QueryInt("uid"); uid > 0 {
			sess.Set(appsession.KeyUserID, uint(uid))
		}
		return sess.Save()
	})
}

// seedSession drives the seeder route and returns the session cookie to carry
// on follow-up requests.
func seedSession(t *testing.T, app *fiber.App, path string) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}
