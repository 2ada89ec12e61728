package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutAndRemove(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/static/")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Put(ctx, "posts/a_b.png", strings.NewReader("png-bytes"), 9, "image/png"))

	got, err := os.ReadFile(filepath.Join(root, "posts", "a_b.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))

	entries, err := os.ReadDir(filepath.Join(root, "posts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not linger")

	assert.Equal(t, "/static/posts/a_b.png", l.URL("posts/a_b.png"))
	key, ok := l.KeyFromURL("/static/posts/a_b.png")
	assert.True(t, ok)
	assert.Equal(t, "posts/a_b.png", key)

	require.NoError(t, l.Remove(ctx, key))
	assert.ErrorIs(t, l.Remove(ctx, key), ErrNotFound)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestLocal_PutFailureLeavesNothing(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/static")
	require.NoError(t, err)

	err = l.Put(context.Background(), "certificates/x.jpg", failingReader{}, 10, "")
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "certificates"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocal_RejectsTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/static")
	require.NoError(t, err)

	err = l.Put(context.Background(), "../escape.png", strings.NewReader("x"), 1, "")
	assert.Error(t, err)

	_, ok := l.KeyFromURL("/static/../etc/passwd")
	assert.False(t, ok)
	_, ok = l.KeyFromURL("https://elsewhere.example/pic.png")
	assert.False(t, ok)
}

type fakeS3 struct {
	puts    map[string][]byte
	deletes []string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_PutURLRemove(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}}
	s := newS3(fake, S3Options{Bucket: "media", Endpoint: "http://minio:9000/"})

	require.NoError(t, s.Put(context.Background(), "posts/k.webp", bytes.NewBufferString("data"), 4, "image/webp"))
	assert.Equal(t, []byte("data"), fake.puts["posts/k.webp"])

	url := s.URL("posts/k.webp")
	assert.Equal(t, "http://minio:9000/media/posts/k.webp", url)
	key, ok := s.KeyFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "posts/k.webp", key)

	require.NoError(t, s.Remove(context.Background(), key))
	assert.Equal(t, []string{"posts/k.webp"}, fake.deletes)
}

func TestS3_DefaultAWSURL(t *testing.T) {
	s := newS3(&fakeS3{}, S3Options{Bucket: "b", Region: "eu-west-1"})
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/x.png", s.URL("x.png"))

	s = newS3(&fakeS3{}, S3Options{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/x.png", s.URL("x.png"))
}
