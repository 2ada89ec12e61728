// Package storage persists uploaded files and maps them to public URLs.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Remove when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Backend stores uploaded content under slash separated keys such as
// "certificates/3f9c..._aws-architect.png".
type Backend interface {
	// Put writes the full content of r under key. Either the whole object becomes
	// visible or nothing does.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Remove deletes the object stored under key.
	Remove(ctx context.Context, key string) error
	// URL returns the public reference for key.
	URL(key string) string
	// KeyFromURL reverses URL. ok is false for references this backend does not own.
	KeyFromURL(url string) (key string, ok bool)
}
