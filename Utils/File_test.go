package utils

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestStageUpload(t *testing.T) {
	r := multipartRequest(t, "videoFile", "clip.mp4", "fake video bytes")

	path, err := StageUpload(r, "videoFile")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	assert.Equal(t, ".mp4", filepath.Ext(path))
	assert.True(t, strings.HasPrefix(path, os.TempDir()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake video bytes", string(data))
}

func TestStageUploadDistinctNames(t *testing.T) {
	first, err := StageUpload(multipartRequest(t, "avatar", "me.png", "a"), "avatar")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(first) })

	second, err := StageUpload(multipartRequest(t, "avatar", "me.png", "b"), "avatar")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(second) })

	assert.NotEqual(t, first, second)
}

func TestStageUploadMissingField(t *testing.T) {
	r := multipartRequest(t, "videoFile", "clip.mp4", "x")

	_, err := StageUpload(r, "thumbnail")
	require.Error(t, err)
}

func TestContentTypeByExt(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeByExt("/tmp/a.mp4"))
	assert.Equal(t, "video/webm", ContentTypeByExt("/tmp/a.webm"))
	assert.Equal(t, "image/jpeg", ContentTypeByExt("/tmp/a.JPG"))
	assert.Equal(t, "image/jpeg", ContentTypeByExt("/tmp/a.jpeg"))
	assert.Equal(t, "image/png", ContentTypeByExt("/tmp/a.png"))
	assert.Equal(t, "application/octet-stream", ContentTypeByExt("/tmp/a.bin"))
	assert.Equal(t, "application/octet-stream", ContentTypeByExt("/tmp/noext"))
}
