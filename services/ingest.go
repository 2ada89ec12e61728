package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/pithakchhorn/portfolio-api/storage"
	"github.com/pithakchhorn/portfolio-api/utils"
)

// Upload kinds scope stored files by resource type.
const (
	KindPosts        = "posts"
	KindCertificates = "certificates"
)

const maxSlugLen = 50

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

// AllowedExtensions lists accepted upload extensions, for error messages.
func AllowedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf"}
}

// Upload is one file received from a client.
type Upload struct {
	Kind     string
	Body     io.Reader
	Filename string // client supplied, only its extension is used
	Size     int64  // declared size, <= 0 when unknown
	Title    string // title of the owning record
}

// Stored describes a persisted upload.
type Stored struct {
	URL string
	Key string
}

// Ingestor validates uploads and writes them to a storage backend.
type Ingestor struct {
	backend  storage.Backend
	maxBytes int64
}

func NewIngestor(backend storage.Backend, maxBytes int64) *Ingestor {
	return &Ingestor{backend: backend, maxBytes: maxBytes}
}

// Ingest validates and stores u. Nothing is left behind when it fails.
func (i *Ingestor) Ingest(ctx context.Context, u Upload) (Stored, error) {
	if u.Kind != KindPosts && u.Kind != KindCertificates {
		return Stored{}, fmt.Errorf("unknown upload kind %q", u.Kind)
	}
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if !allowedExtensions[ext] {
		return Stored{}, ErrUnsupportedType
	}
	if u.Size > i.maxBytes {
		return Stored{}, ErrTooLarge
	}

	key := u.Kind + "/" + StoredName(u.Title, ext)
	body := &capReader{r: u.Body, remaining: i.maxBytes}
	if err := i.backend.Put(ctx, key, body, u.Size, mime.TypeByExtension(ext)); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return Stored{}, ErrTooLarge
		}
		return Stored{}, fmt.Errorf("store upload: %w", err)
	}
	return Stored{URL: i.backend.URL(key), Key: key}, nil
}

// Discard removes a stored upload whose owning record could not be written.
func (i *Ingestor) Discard(ctx context.Context, s Stored) {
	if s.Key == "" {
		return
	}
	if err := i.backend.Remove(ctx, s.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		// the sweeper never sees this file; log so it can be removed by hand
		utils.Sugar.Warnw("failed to discard upload", "key", s.Key, "error", err)
	}
}

// StoredName builds "{random}_{slug}{ext}". The 128-bit random part makes collisions
// negligible, so no existence check is made.
func StoredName(title, ext string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s := slug.Make(title)
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		s = "file"
	}
	return token + "_" + s + ext
}

// capReader fails with ErrTooLarge once more than remaining bytes were read.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
