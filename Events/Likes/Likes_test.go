package likes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	auth "github.com/pritamduttaofficial/VideoTube/Services/Auth"
	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := mdb.Connect(ctx, uri, "videotube_test_likes")
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		_ = store.Likes().Drop(cleanupCtx)
		_ = store.Videos().Drop(cleanupCtx)
		_ = store.Close(cleanupCtx)
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Handler{Store: store, Log: log}
}

func toggleRequest(uid, videoID bson.ObjectID) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("videoId", videoID.Hex())
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(auth.WithUID(ctx, uid.Hex()))
}

func seedVideo(t *testing.T, h *Handler) bson.ObjectID {
	t.Helper()
	res, err := h.Store.Videos().InsertOne(context.Background(), bson.M{
		"owner":     bson.NewObjectID(),
		"title":     "a video",
		"createdAt": time.Now(),
	})
	require.NoError(t, err)
	return res.InsertedID.(bson.ObjectID)
}

func likedState(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()
	var resp struct {
		Data struct {
			Liked bool `json:"liked"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Liked
}

// Toggling twice must return to the original state with no leftover rows.
func TestToggleVideoLikeDoubleToggle(t *testing.T) {
	h := testHandler(t)
	uid := bson.NewObjectID()
	videoID := seedVideo(t, h)
	ctx := context.Background()

	first := httptest.NewRecorder()
	require.NoError(t, h.ToggleVideoLike(first, toggleRequest(uid, videoID)))
	assert.True(t, likedState(t, first))

	count, err := h.Store.Likes().CountDocuments(ctx, bson.M{"target": videoID, "likedBy": uid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	second := httptest.NewRecorder()
	require.NoError(t, h.ToggleVideoLike(second, toggleRequest(uid, videoID)))
	assert.False(t, likedState(t, second))

	count, err = h.Store.Likes().CountDocuments(ctx, bson.M{"target": videoID, "likedBy": uid})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	third := httptest.NewRecorder()
	require.NoError(t, h.ToggleVideoLike(third, toggleRequest(uid, videoID)))
	assert.True(t, likedState(t, third))
}

// Likes from different users on the same video coexist; each toggles only
// its own row.
func TestToggleVideoLikeIsPerUser(t *testing.T) {
	h := testHandler(t)
	videoID := seedVideo(t, h)
	alice := bson.NewObjectID()
	bob := bson.NewObjectID()
	ctx := context.Background()

	require.NoError(t, h.ToggleVideoLike(httptest.NewRecorder(), toggleRequest(alice, videoID)))
	require.NoError(t, h.ToggleVideoLike(httptest.NewRecorder(), toggleRequest(bob, videoID)))

	count, err := h.Store.Likes().CountDocuments(ctx, bson.M{"target": videoID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, h.ToggleVideoLike(httptest.NewRecorder(), toggleRequest(alice, videoID)))

	count, err = h.Store.Likes().CountDocuments(ctx, bson.M{"target": videoID, "likedBy": bob})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestToggleVideoLikeMissingVideo(t *testing.T) {
	h := testHandler(t)

	err := h.ToggleVideoLike(httptest.NewRecorder(), toggleRequest(bson.NewObjectID(), bson.NewObjectID()))
	var apiErr *utils.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
