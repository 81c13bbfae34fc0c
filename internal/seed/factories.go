// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"pawhaven/internal/models"
	"pawhaven/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var petTypes = []string{"dog", "cat", "rabbit", "hamster", "parrot", "turtle"}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. All seeded users share
// the password "password123". Optional override functions may modify the
// generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	avatarID := models.DefaultImageID
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Password: string(hashed),
		ImageID:  &avatarID,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CreateListing constructs and persists a foster listing owned by the given
// user, with a plausible care window and the matching default image.
func (f *Factory) CreateListing(owner *models.User, overrides ...func(*models.Listing)) (*models.Listing, error) {
	petType := petTypes[f.rng.Intn(len(petTypes))]
	start := time.Now().AddDate(0, 0, f.rng.Intn(30))
	end := start.AddDate(0, 0, 7+f.rng.Intn(60))
	imageID := service.DefaultImageID(petType)

	listing := &models.Listing{
		OwnerID:     owner.ID,
		Type:        petType,
		Location:    strings.ToLower(gofakeit.City()),
		Age:         gofakeit.Number(1, 15),
		Weight:      gofakeit.Number(1, 40),
		Description: gofakeit.Paragraph(1, 2, 8, " "),
		StartDate:   start,
		EndDate:     end,
		ImageID:     &imageID,
	}

	for _, override := range overrides {
		override(listing)
	}

	if err := f.db.Create(listing).Error; err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

// CreateReply constructs and persists a reply on the given listing.
func (f *Factory) CreateReply(listing *models.Listing, author *models.User, overrides ...func(*models.Reply)) (*models.Reply, error) {
	reply := &models.Reply{
		ListingID: listing.ID,
		AuthorID:  author.ID,
		Body:      gofakeit.Sentence(8 + f.rng.Intn(10)),
	}

	for _, override := range overrides {
		override(reply)
	}

	if err := f.db.Create(reply).Error; err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}
	return reply, nil
}
