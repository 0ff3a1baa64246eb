package users

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	auth "github.com/pritamduttaofficial/VideoTube/Services/Auth"
	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeMedia records deletions so tests can observe cleanup without a bucket.
type fakeMedia struct {
	base    string
	deleted []string
}

func (f *fakeMedia) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	os.Remove(localPath)
	return f.base + "/" + key, nil
}

func (f *fakeMedia) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeMedia) KeyFromURL(url string) string {
	prefix := f.base + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

func TestSetTokenCookiesAttributes(t *testing.T) {
	rec := httptest.NewRecorder()
	setTokenCookies(rec, "access-value", "refresh-value")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		c := byName[name]
		require.NotNil(t, c, name)
		assert.True(t, c.HttpOnly, name)
		assert.True(t, c.Secure, name)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite, name)
		assert.Equal(t, "/", c.Path, name)
	}
	assert.Equal(t, "access-value", byName[auth.AccessTokenCookie].Value)
	assert.Equal(t, "refresh-value", byName[auth.RefreshTokenCookie].Value)
}

func TestClearTokenCookiesExpire(t *testing.T) {
	rec := httptest.NewRecorder()
	clearTokenCookies(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
	}
}

func TestCleanupMediaSkipsForeignAndEmpty(t *testing.T) {
	media := &fakeMedia{base: "https://media.test/videotube"}
	h := &Handler{Media: media, Log: testLogger()}

	h.cleanupMedia(context.Background(),
		"https://media.test/videotube/avatars/a1.png",
		"", // optional cover that was never uploaded
		"https://elsewhere.example.com/covers/c1.png",
	)

	assert.Equal(t, []string{"avatars/a1.png"}, media.deleted)
}

func testHandler(t *testing.T) *Handler {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := mdb.Connect(ctx, uri, "videotube_test_users")
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		_ = store.Users().Drop(cleanupCtx)
		_ = store.Close(cleanupCtx)
	})

	authSvc, err := auth.NewService(auth.Config{AccessSecret: "a", RefreshSecret: "r"})
	require.NoError(t, err)

	return &Handler{
		Store: store,
		Auth:  authSvc,
		Media: &fakeMedia{base: "https://media.test/videotube"},
		Log:   testLogger(),
	}
}

func signupRequest(t *testing.T, username, email string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("username", username))
	require.NoError(t, mw.WriteField("email", email))
	require.NoError(t, mw.WriteField("fullname", "Test User"))
	require.NoError(t, mw.WriteField("password", "s3cret-pass"))
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/signup", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestSignUpRejectsDuplicateUsername(t *testing.T) {
	h := testHandler(t)

	require.NoError(t, h.SignUp(httptest.NewRecorder(), signupRequest(t, "alice", "alice@example.com")))

	err := h.SignUp(httptest.NewRecorder(), signupRequest(t, "alice", "other@example.com"))
	var apiErr *utils.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	count, cerr := h.Store.Users().CountDocuments(context.Background(), bson.M{"username": "alice"})
	require.NoError(t, cerr)
	assert.Equal(t, int64(1), count)
}
