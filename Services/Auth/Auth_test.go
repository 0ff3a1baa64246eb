package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(Config{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
	})
	require.NoError(t, err)
	return s
}

func TestNewServiceRequiresSecrets(t *testing.T) {
	_, err := NewService(Config{AccessSecret: "only-access"})
	require.Error(t, err)

	_, err = NewService(Config{RefreshSecret: "only-refresh"})
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	s := newTestService(t)

	token, err := s.GenerateAccessToken("64f1b2c3d4e5f60718293a4b")
	require.NoError(t, err)

	claims, err := s.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1b2c3d4e5f60718293a4b", claims.UID)
	assert.Equal(t, "videotube-backend", claims.Issuer)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	s := newTestService(t)

	token, err := s.GenerateRefreshToken("64f1b2c3d4e5f60718293a4b")
	require.NoError(t, err)

	claims, err := s.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1b2c3d4e5f60718293a4b", claims.UID)
}

// Access and refresh tokens are signed with different secrets, so neither
// verifies against the other's key.
func TestTokensAreNotInterchangeable(t *testing.T) {
	s := newTestService(t)

	access, err := s.GenerateAccessToken("u1")
	require.NoError(t, err)
	_, err = s.VerifyRefreshToken(access)
	require.Error(t, err)

	refresh, err := s.GenerateRefreshToken("u1")
	require.NoError(t, err)
	_, err = s.VerifyAccessToken(refresh)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s, err := NewService(Config{
		AccessSecret:   "access-test-secret",
		RefreshSecret:  "refresh-test-secret",
		AccessValidity: time.Nanosecond,
	})
	require.NoError(t, err)

	token, err := s.GenerateAccessToken("u1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = s.VerifyAccessToken(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := newTestService(t)
	_, err := s.VerifyAccessToken("not.a.token")
	require.Error(t, err)
}

func TestTokenFromRequestPrefersCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"})
	r.Header.Set("Authorization", "Bearer from-header")

	assert.Equal(t, "from-cookie", TokenFromRequest(r, AccessTokenCookie))
}

func TestTokenFromRequestBearerFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")

	assert.Equal(t, "from-header", TokenFromRequest(r, AccessTokenCookie))
}

func TestTokenFromRequestEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", TokenFromRequest(r, AccessTokenCookie))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong-pass", hash))
}

func TestUIDContextRoundTrip(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	uid, ok := UIDFromContext(r.Context())
	assert.False(t, ok)
	assert.Empty(t, uid)

	ctx := WithUID(r.Context(), "u1")
	uid, ok = UIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", uid)
}
