// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"pawhaven/internal/models"

	"gorm.io/gorm"
)

// ReplyRepository defines persistence operations for listing replies.
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	GetByID(ctx context.Context, id uint) (*models.Reply, error)
	GetByListing(ctx context.Context, listingID uint) ([]models.Reply, error)
	Delete(ctx context.Context, id uint) error
	DeleteByListing(ctx context.Context, listingID uint) error
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository returns a new ReplyRepository implementation.
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *replyRepository) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Reply", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &reply, nil
}

func (r *replyRepository) GetByListing(ctx context.Context, listingID uint) ([]models.Reply, error) {
	var replies []models.Reply
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return replies, nil
}

func (r *replyRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Reply{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *replyRepository) DeleteByListing(ctx context.Context, listingID uint) error {
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Delete(&models.Reply{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
