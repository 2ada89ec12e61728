package models

import (
	"time"

	"gorm.io/gorm"
)

// Skill is an entry of the portfolio's skill matrix.
type Skill struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Category    string    `gorm:"size:64;index" json:"category"`
	Proficiency *int      `json:"proficiency"` // 0..100
	IconURL     *string   `gorm:"size:1024" json:"icon_url"`
	Color       *string   `gorm:"size:16" json:"color"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsFeatured  bool      `gorm:"not null;default:false" json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Skill) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&s.CreatedAt, &s.UpdatedAt)
	return nil
}

// Skills carry no uploaded file.
func (s *Skill) ImageRef() string { return "" }
