package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

func TestRequireRejectsMissingToken(t *testing.T) {
	s := newTestService(t)

	handler := s.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Unauthorized Access", resp.Message)
}

func TestRequireRejectsInvalidToken(t *testing.T) {
	s := newTestService(t)

	handler := s.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer bogus")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid Access Token", resp.Message)
}

func TestRequirePassesUIDThrough(t *testing.T) {
	s := newTestService(t)

	oid := bson.NewObjectID()
	token, err := s.GenerateAccessToken(oid.Hex())
	require.NoError(t, err)

	var called bool
	handler := s.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		id, ok := CallerID(r)
		require.True(t, ok)
		assert.Equal(t, oid, id)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})

	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, called)
}

func TestCallerIDWithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	id, ok := CallerID(r)
	assert.False(t, ok)
	assert.Equal(t, bson.NilObjectID, id)
}

func TestCallerIDMalformedUID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithUID(r.Context(), "not-a-hex-id"))

	_, ok := CallerID(r)
	assert.False(t, ok)
}
