package models

import "time"

// UploadedFile is the ledger of stored files that no record references any more.
// Rows are written in the transaction that detaches the file and swept later by the
// upload cleaner.
type UploadedFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StorageKey string    `gorm:"size:1024;not null" json:"storage_key"` // backend key, e.g. certificates/ab12_title.png
	URL        string    `gorm:"size:1024;not null;index" json:"url"`   // public URL like /static/certificates/...
	OrphanedAt time.Time `gorm:"index;not null" json:"orphaned_at"`
	CreatedAt  time.Time `json:"created_at"`
}
