package dashboard

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

	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := mdb.Connect(ctx, uri, "videotube_test_dashboard")
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cleanupCancel()
		_ = store.Videos().Drop(cleanupCtx)
		_ = store.Likes().Drop(cleanupCtx)
		_ = store.Subscriptions().Drop(cleanupCtx)
		_ = store.Close(cleanupCtx)
	})

	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Handler{Store: store, Log: log}
}

func statsRequest(channelID bson.ObjectID) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("channelId", channelID.Hex())
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func fetchStats(t *testing.T, h *Handler, channelID bson.ObjectID) Stats {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, h.ChannelStats(rec, statsRequest(channelID)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

// A channel with no videos and no subscribers reports zeros across the
// board; the empty aggregate results are not errors.
func TestChannelStatsEmptyChannel(t *testing.T) {
	h := testHandler(t)

	stats := fetchStats(t, h, bson.NewObjectID())

	assert.Zero(t, stats.TotalSubscribers)
	assert.Zero(t, stats.TotalVideos)
	assert.Zero(t, stats.TotalViews)
	assert.Zero(t, stats.TotalLikes)
}

func TestChannelStatsCounts(t *testing.T) {
	h := testHandler(t)
	channelID := bson.NewObjectID()
	ctx := context.Background()

	v1, err := h.Store.Videos().InsertOne(ctx, bson.M{"owner": channelID, "views": int64(3)})
	require.NoError(t, err)
	_, err = h.Store.Videos().InsertOne(ctx, bson.M{"owner": channelID, "views": int64(4)})
	require.NoError(t, err)

	_, err = h.Store.Likes().InsertOne(ctx, bson.M{
		"targetType": "video",
		"target":     v1.InsertedID.(bson.ObjectID),
		"likedBy":    bson.NewObjectID(),
		"createdAt":  time.Now(),
	})
	require.NoError(t, err)

	_, err = h.Store.Subscriptions().InsertOne(ctx, bson.M{
		"channel":    channelID,
		"subscriber": bson.NewObjectID(),
		"createdAt":  time.Now(),
	})
	require.NoError(t, err)

	stats := fetchStats(t, h, channelID)

	assert.Equal(t, int64(1), stats.TotalSubscribers)
	assert.Equal(t, int64(2), stats.TotalVideos)
	assert.Equal(t, int64(7), stats.TotalViews)
	assert.Equal(t, int64(1), stats.TotalLikes)
}
