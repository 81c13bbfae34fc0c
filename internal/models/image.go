// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Well-known default image IDs seeded at startup. They are referenced by
// users and listings that never uploaded a picture and must never be deleted.
const (
	DefaultImageID    uint = 1
	DefaultDogImageID uint = 2
)

// Image represents stored image metadata. The file itself lives on disk;
// default images (IDs 1 and 2) resolve under the static directory, uploads
// under the configured upload directory.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"not null" json:"filename"`
	FileHash  string    `json:"file_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsDefault reports whether the image is one of the seeded system defaults.
func (i *Image) IsDefault() bool {
	return i.ID == DefaultImageID || i.ID == DefaultDogImageID
}
