// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account in the Pawhaven application.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"unique;not null" json:"username"`
	Email     string    `gorm:"not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	ImageID   *uint     `json:"image_id,omitempty"`
	Image     *Image    `gorm:"foreignKey:ImageID" json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Listings  []Listing `gorm:"foreignKey:OwnerID" json:"listings,omitempty"`
}
