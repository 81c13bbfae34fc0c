package seed

import (
	"fmt"
	"log"
	"os"
	"time"

	"pawhaven/internal/models"
	"pawhaven/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db)}
}

// ClearAll removes seedable data. The two shared default images are kept.
func (s *Seeder) ClearAll() error {
	log.Println("Cleaning database...")
	if err := s.db.Where("1 = 1").Delete(&models.Reply{}).Error; err != nil {
		return fmt.Errorf("failed to clear replies: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.Listing{}).Error; err != nil {
		return fmt.Errorf("failed to clear listings: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	if err := s.db.
		Where("id NOT IN ?", []uint{models.DefaultImageID, models.DefaultDogImageID}).
		Delete(&models.Image{}).Error; err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}
	return nil
}

// Seed creates numUsers users and numListings listings spread across them,
// with a few replies on each listing.
func (s *Seeder) Seed(numUsers, numListings int) error {
	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return err
		}
		users = append(users, user)
	}
	log.Printf("Created %d users", len(users))

	listings := make([]*models.Listing, 0, numListings)
	for i := 0; i < numListings; i++ {
		owner := users[i%len(users)]
		listing, err := s.factory.CreateListing(owner)
		if err != nil {
			return err
		}
		listings = append(listings, listing)
	}
	log.Printf("Created %d listings", len(listings))

	replies := 0
	for _, listing := range listings {
		for i := 0; i < s.factory.rng.Intn(4); i++ {
			author := users[s.factory.rng.Intn(len(users))]
			if _, err := s.factory.CreateReply(listing, author); err != nil {
				return err
			}
			replies++
		}
	}
	log.Printf("Created %d replies", replies)

	return nil
}

// Preset is a deterministic seed scenario loaded from a YAML file.
type Preset struct {
	Users    []PresetUser    `yaml:"users"`
	Listings []PresetListing `yaml:"listings"`
}

// PresetUser is one fixed account in a preset.
type PresetUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// PresetListing is one fixed listing in a preset, keyed to its owner by
// username.
type PresetListing struct {
	Owner       string `yaml:"owner"`
	Type        string `yaml:"type"`
	Location    string `yaml:"location"`
	Age         int    `yaml:"age"`
	Weight      int    `yaml:"weight"`
	Description string `yaml:"description"`
	StartDate   string `yaml:"start_date"`
	EndDate     string `yaml:"end_date"`
}

// ApplyPresetFile loads a YAML preset and creates its users and listings.
func (s *Seeder) ApplyPresetFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset %s: %w", path, err)
	}
	var preset Preset
	if err := yaml.Unmarshal(raw, &preset); err != nil {
		return fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	return s.ApplyPreset(preset)
}

// ApplyPreset creates the users and listings of an in-memory preset.
func (s *Seeder) ApplyPreset(preset Preset) error {
	byUsername := make(map[string]*models.User, len(preset.Users))
	for _, pu := range preset.Users {
		password := pu.Password
		if password == "" {
			password = "password123"
		}
		hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = pu.Username
			u.Email = pu.Email
			u.Password = string(hashed)
		})
		if err != nil {
			return err
		}
		byUsername[user.Username] = user
	}

	for _, pl := range preset.Listings {
		owner, ok := byUsername[pl.Owner]
		if !ok {
			return fmt.Errorf("preset listing owner %q is not in the preset users", pl.Owner)
		}
		start, err := time.Parse("2006-01-02", pl.StartDate)
		if err != nil {
			return fmt.Errorf("preset listing start date %q: %w", pl.StartDate, err)
		}
		end, err := time.Parse("2006-01-02", pl.EndDate)
		if err != nil {
			return fmt.Errorf("preset listing end date %q: %w", pl.EndDate, err)
		}
		imageID := service.DefaultImageID(pl.Type)
		if _, err := s.factory.CreateListing(owner, func(l *models.Listing) {
			l.Type = pl.Type
			l.Location = pl.Location
			l.Age = pl.Age
			l.Weight = pl.Weight
			l.Description = pl.Description
			l.StartDate = start
			l.EndDate = end
			l.ImageID = &imageID
		}); err != nil {
			return err
		}
	}

	return nil
}
