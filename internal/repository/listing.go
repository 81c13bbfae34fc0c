// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"pawhaven/internal/models"

	"gorm.io/gorm"
)

// ListingFilter narrows a listing query. Zero-value string fields match all;
// the window bounds are mandatory (callers substitute the unbounded default).
type ListingFilter struct {
	Type        string
	Location    string
	WindowStart time.Time
	WindowEnd   time.Time
}

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	Find(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.Listing, error)
	Count(ctx context.Context, filter ListingFilter) (int64, error)
	GetByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Listing, error)
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository returns a new ListingRepository implementation.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Image").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Replies.Author").
		First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Listing", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &listing, nil
}

// applyFilter builds the WHERE clause shared by Find and Count. Type and
// location match case-insensitively as substrings; a listing matches the
// window iff its own range falls strictly inside it. LOWER(...) LIKE keeps
// the query portable across postgres and sqlite.
func (r *listingRepository) applyFilter(db *gorm.DB, f ListingFilter) *gorm.DB {
	if f.Type != "" {
		db = db.Where("LOWER(type) LIKE ?", "%"+strings.ToLower(f.Type)+"%")
	}
	if f.Location != "" {
		db = db.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}
	return db.Where("start_date > ? AND end_date < ?", f.WindowStart, f.WindowEnd)
}

func (r *listingRepository) Find(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.Listing{}), filter).
		Preload("Owner").
		Preload("Image").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}

func (r *listingRepository) Count(ctx context.Context, filter ListingFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.Listing{}), filter).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *listingRepository) GetByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Preload("Image").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&listings).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}

func (r *listingRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *listingRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Listing{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
