package utils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/storage"
)

func openSweepDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sweep.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Post{}, &models.Certificate{}, &models.UploadedFile{}))
	return db
}

func putFile(t *testing.T, backend *storage.Local, key string) string {
	t.Helper()
	require.NoError(t, backend.Put(context.Background(), key, strings.NewReader("x"), 1, "image/png"))
	return backend.URL(key)
}

func TestSweepOrphans(t *testing.T) {
	db := openSweepDB(t)
	backend, err := storage.NewLocal(t.TempDir(), "/static")
	require.NoError(t, err)
	ctx := context.Background()

	oldURL := putFile(t, backend, "posts/old.png")
	freshURL := putFile(t, backend, "posts/fresh.png")
	reusedURL := putFile(t, backend, "certificates/reused.png")

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Create(&[]models.UploadedFile{
		{StorageKey: "posts/old.png", URL: oldURL, OrphanedAt: past},
		{StorageKey: "posts/fresh.png", URL: freshURL, OrphanedAt: time.Now()},
		{StorageKey: "certificates/reused.png", URL: reusedURL, OrphanedAt: past},
		{StorageKey: "posts/gone.png", URL: "/static/posts/gone.png", OrphanedAt: past},
	}).Error)
	require.NoError(t, db.Create(&models.Certificate{Title: "c", Issuer: "i", ImageURL: reusedURL}).Error)

	n, err := SweepOrphans(ctx, db, backend, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = os.Stat(filepath.Join(backend.Root, "posts", "old.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(backend.Root, "posts", "fresh.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(backend.Root, "certificates", "reused.png"))
	assert.NoError(t, err)

	var left []models.UploadedFile
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "posts/fresh.png", left[0].StorageKey)
}

func TestStartUploadCleaner_StopsWithContext(t *testing.T) {
	db := openSweepDB(t)
	backend, err := storage.NewLocal(t.TempDir(), "/static")
	require.NoError(t, err)

	url := putFile(t, backend, "posts/a.png")
	require.NoError(t, db.Create(&models.UploadedFile{StorageKey: "posts/a.png", URL: url, OrphanedAt: time.Now().Add(-time.Hour)}).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartUploadCleaner(ctx, db, backend, 10*time.Millisecond, time.Minute)

	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&models.UploadedFile{}).Count(&n)
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)
}
