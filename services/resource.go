package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/storage"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// Record is implemented by every model the resource store manages.
type Record interface {
	ImageRef() string
}

// ListOptions selects a page of records. Filter keys are column names and must be
// allow-listed by the store.
type ListOptions struct {
	Filter map[string]interface{}
	Skip   int
	Limit  int
}

// ResourceStore is the CRUD contract shared by posts, certificates and skills.
type ResourceStore[T any, PT interface {
	*T
	Record
}] struct {
	db         *gorm.DB
	backend    storage.Backend
	order      string
	filterable map[string]bool
}

// NewResourceStore creates a store ordered by order (an SQL ORDER BY clause). backend
// is used to map detached image URLs to storage keys for the orphan ledger; it may be
// nil for models without uploads.
func NewResourceStore[T any, PT interface {
	*T
	Record
}](db *gorm.DB, backend storage.Backend, order string, filterable ...string) *ResourceStore[T, PT] {
	f := make(map[string]bool, len(filterable))
	for _, col := range filterable {
		f[col] = true
	}
	return &ResourceStore[T, PT]{db: db, backend: backend, order: order, filterable: f}
}

// List returns a page of records, newest first unless the store defines another order.
func (s *ResourceStore[T, PT]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	if opts.Skip < 0 {
		return nil, Invalid("skip", "must be >= 0")
	}
	if opts.Limit < 1 || opts.Limit > MaxListLimit {
		return nil, Invalid("limit", fmt.Sprintf("must be between 1 and %d", MaxListLimit))
	}

	q := s.db.WithContext(ctx).Model(new(T))
	for col, val := range opts.Filter {
		if !s.filterable[col] {
			return nil, Invalid(col, "is not filterable")
		}
		q = q.Where(col+" = ?", val)
	}

	items := make([]T, 0)
	if err := q.Order(s.order).Offset(opts.Skip).Limit(opts.Limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get loads one record by id.
func (s *ResourceStore[T, PT]) Get(ctx context.Context, id uint) (PT, error) {
	var rec T
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	return PT(&rec), nil
}

// Exists reports whether another record (id != excludeID) has column = value.
func (s *ResourceStore[T, PT]) Exists(ctx context.Context, column string, value interface{}, excludeID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(new(T)).Where(column+" = ?", value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create persists rec; id and timestamps are assigned by the store.
func (s *ResourceStore[T, PT]) Create(ctx context.Context, rec PT) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Update loads the record, applies mutate and saves it in one transaction. When the
// image reference changes, the previous one is written to the orphan ledger; the file
// itself is removed later by the upload cleaner.
func (s *ResourceStore[T, PT]) Update(ctx context.Context, id uint, mutate func(PT) error) (PT, error) {
	var rec T
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return notFound(err)
		}
		before := PT(&rec).ImageRef()
		if err := mutate(PT(&rec)); err != nil {
			return err
		}
		if err := tx.Save(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return err
		}
		if before != "" && before != PT(&rec).ImageRef() {
			return s.detach(tx, before)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return PT(&rec), nil
}

// Delete removes the record and ledgers its image reference.
func (s *ResourceStore[T, PT]) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec T
		if err := tx.First(&rec, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return err
		}
		if ref := PT(&rec).ImageRef(); ref != "" {
			return s.detach(tx, ref)
		}
		return nil
	})
}

func (s *ResourceStore[T, PT]) detach(tx *gorm.DB, url string) error {
	if s.backend == nil {
		return nil
	}
	key, ok := s.backend.KeyFromURL(url)
	if !ok {
		// external reference, nothing of ours to clean up
		return nil
	}
	return tx.Create(&models.UploadedFile{StorageKey: key, URL: url, OrphanedAt: time.Now()}).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
