package utils

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/storage"
)

const sweepBatchSize = 100

// StartUploadCleaner launches a background goroutine that periodically removes files
// recorded in the orphan ledger once they are older than grace. It stops with ctx and
// is best-effort: failures are logged and retried on the next tick.
func StartUploadCleaner(ctx context.Context, db *gorm.DB, backend storage.Backend, interval, grace time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n, err := SweepOrphans(ctx, db, backend, grace)
			if err != nil {
				Sugar.Warnw("upload cleaner sweep failed", "error", err)
				continue
			}
			if n > 0 {
				Sugar.Infow("upload cleaner removed orphaned files", "count", n)
			}
		}
	}()
}

// SweepOrphans processes one batch of ledger rows orphaned before now-grace and returns
// how many rows were settled. A file that a post or certificate references again is
// kept; only its ledger row is dropped.
func SweepOrphans(ctx context.Context, db *gorm.DB, backend storage.Backend, grace time.Duration) (int, error) {
	var items []models.UploadedFile
	cutoff := time.Now().Add(-grace)
	if err := db.WithContext(ctx).Where("orphaned_at <= ?", cutoff).
		Order("id").Limit(sweepBatchSize).Find(&items).Error; err != nil {
		return 0, err
	}

	settled := 0
	for _, it := range items {
		inUse, err := referenced(ctx, db, it.URL)
		if err != nil {
			return settled, err
		}
		if !inUse {
			if err := backend.Remove(ctx, it.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
				// keep the row so the next sweep retries
				Sugar.Warnw("upload cleaner remove failed", "key", it.StorageKey, "error", err)
				continue
			}
		}
		if err := db.WithContext(ctx).Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			return settled, err
		}
		settled++
	}
	return settled, nil
}

func referenced(ctx context.Context, db *gorm.DB, url string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Post{}).Where("image_url = ?", url).Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}
	if err := db.WithContext(ctx).Model(&models.Certificate{}).Where("image_url = ?", url).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
