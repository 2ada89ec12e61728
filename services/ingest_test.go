package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithakchhorn/portfolio-api/storage"
)

func newTestIngestor(t *testing.T, maxBytes int64) (*Ingestor, *storage.Local) {
	t.Helper()
	backend := newTestBackend(t)
	return NewIngestor(backend, maxBytes), backend
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestIngest_StoresValidImage(t *testing.T) {
	ing, backend := newTestIngestor(t, 1024)
	body := []byte("\x89PNG fake image bytes")

	st, err := ing.Ingest(context.Background(), Upload{
		Kind:     KindCertificates,
		Body:     bytes.NewReader(body),
		Filename: "Badge.PNG",
		Size:     int64(len(body)),
		Title:    "Go Developer",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(st.URL, "/static/certificates/"))
	assert.True(t, strings.HasSuffix(st.URL, "_go-developer.png"))
	data, err := os.ReadFile(filepath.Join(backend.Root, filepath.FromSlash(st.Key)))
	require.NoError(t, err)
	assert.Equal(t, body, data)
}

func TestIngest_RejectsUnsupportedType(t *testing.T) {
	ing, backend := newTestIngestor(t, 1024)

	_, err := ing.Ingest(context.Background(), Upload{
		Kind:     KindPosts,
		Body:     strings.NewReader("MZ"),
		Filename: "tool.exe",
		Title:    "x",
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, countFiles(t, backend.Root))
}

func TestIngest_RejectsDeclaredOversize(t *testing.T) {
	ing, backend := newTestIngestor(t, 8)

	_, err := ing.Ingest(context.Background(), Upload{
		Kind:     KindPosts,
		Body:     strings.NewReader("0123456789"),
		Filename: "a.jpg",
		Size:     10,
	})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, countFiles(t, backend.Root))
}

func TestIngest_RejectsOversizeStream(t *testing.T) {
	ing, backend := newTestIngestor(t, 8)

	// size unknown up front, the cap trips while copying
	_, err := ing.Ingest(context.Background(), Upload{
		Kind:     KindPosts,
		Body:     strings.NewReader("0123456789abcdef"),
		Filename: "a.jpg",
	})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, countFiles(t, backend.Root))
}

func TestIngest_UnknownKind(t *testing.T) {
	ing, _ := newTestIngestor(t, 8)

	_, err := ing.Ingest(context.Background(), Upload{Kind: "avatars", Body: strings.NewReader("x"), Filename: "a.png"})
	assert.Error(t, err)
}

func TestIngest_Discard(t *testing.T) {
	ing, backend := newTestIngestor(t, 1024)
	ctx := context.Background()

	st, err := ing.Ingest(ctx, Upload{Kind: KindPosts, Body: strings.NewReader("data"), Filename: "a.pdf", Title: "doc"})
	require.NoError(t, err)
	require.Equal(t, 1, countFiles(t, backend.Root))

	ing.Discard(ctx, st)
	assert.Zero(t, countFiles(t, backend.Root))
	// second discard is a no-op
	ing.Discard(ctx, st)
}

func TestStoredName(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{32}_[a-z0-9-]+\.[a-z]+$`)

	a := StoredName("My First Post!", ".jpg")
	b := StoredName("My First Post!", ".jpg")
	assert.Regexp(t, re, a)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_my-first-post.jpg"))

	assert.True(t, strings.HasSuffix(StoredName("", ".png"), "_file.png"))
	assert.True(t, strings.HasSuffix(StoredName("!!!", ".png"), "_file.png"))

	long := StoredName(strings.Repeat("word ", 40), ".gif")
	slugPart := strings.TrimSuffix(strings.SplitN(long, "_", 2)[1], ".gif")
	assert.LessOrEqual(t, len(slugPart), maxSlugLen)
	assert.False(t, strings.HasSuffix(slugPart, "-"))
}
