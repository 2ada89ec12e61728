package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is a credential with a proof image (or PDF).
type Certificate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Issuer    string    `gorm:"size:255;not null" json:"issuer"`
	Date      string    `gorm:"size:64" json:"date"` // free text, e.g. "March 2024"
	ImageURL  string    `gorm:"size:1024;not null" json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&c.CreatedAt, &c.UpdatedAt)
	return nil
}

func (c *Certificate) ImageRef() string { return c.ImageURL }
