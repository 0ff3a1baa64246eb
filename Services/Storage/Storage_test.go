package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("videos", "64f1b2c3d4e5f60718293a4b", ".mp4")

	assert.True(t, strings.HasPrefix(key, "videos/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))
	// 32-byte digest hex-encoded between prefix and extension.
	hexPart := strings.TrimSuffix(strings.TrimPrefix(key, "videos/"), ".mp4")
	assert.Len(t, hexPart, 64)
}

func TestObjectKeyUnique(t *testing.T) {
	a := ObjectKey("avatars", "u1", ".png")
	b := ObjectKey("avatars", "u1", ".png")
	assert.NotEqual(t, a, b)
}

func TestKeyFromURL(t *testing.T) {
	m := &MediaStore{publicURL: "https://media.example.com/videotube"}

	key := m.KeyFromURL("https://media.example.com/videotube/videos/abc123.mp4")
	assert.Equal(t, "videos/abc123.mp4", key)
}

func TestKeyFromURLForeignHost(t *testing.T) {
	m := &MediaStore{publicURL: "https://media.example.com/videotube"}

	assert.Equal(t, "", m.KeyFromURL("https://other.example.com/videos/abc123.mp4"))
	assert.Equal(t, "", m.KeyFromURL(""))
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(context.Background(), Config{AccessKey: "ak", SecretKey: "sk"})
	require.Error(t, err)
}
