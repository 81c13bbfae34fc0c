// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Listing represents a pet foster/adoption post created by a user.
// Type and Location are normalized to lowercase before persisting.
type Listing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	Owner       User      `gorm:"foreignKey:OwnerID" json:"owner"`
	Type        string    `gorm:"not null" json:"type"`
	Location    string    `gorm:"not null" json:"location"`
	Age         int       `gorm:"default:0" json:"age"`
	Weight      int       `gorm:"default:0" json:"weight"`
	Description string    `gorm:"type:text" json:"description"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	ImageID     *uint     `json:"image_id,omitempty"`
	Image       *Image    `gorm:"foreignKey:ImageID" json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Replies     []Reply   `gorm:"foreignKey:ListingID" json:"replies,omitempty"`
}
