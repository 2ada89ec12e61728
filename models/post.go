package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post is a blog entry shown on the portfolio.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null;index" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Tags      string    `gorm:"size:512" json:"tags"` // comma separated
	Category  string    `gorm:"size:64;index" json:"category"`
	ImageURL  *string   `gorm:"size:1024" json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate gives a new post identical created/updated timestamps.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&p.CreatedAt, &p.UpdatedAt)
	return nil
}

// ImageRef returns the stored image reference or "".
func (p *Post) ImageRef() string {
	if p.ImageURL == nil {
		return ""
	}
	return *p.ImageURL
}

// NormalizeTags trims every comma separated token and drops empty ones.
func NormalizeTags(raw string) string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func stampCreate(created, updated *time.Time) {
	if created.IsZero() {
		*created = time.Now()
	}
	*updated = *created
}
