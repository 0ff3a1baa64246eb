package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	auth "github.com/pritamduttaofficial/VideoTube/Services/Auth"
	cache "github.com/pritamduttaofficial/VideoTube/Services/Cache"
	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
	pipe "github.com/pritamduttaofficial/VideoTube/Services/Pipeline"
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

// Stats is the channel dashboard read model. The four numbers come from
// four independent queries; they are individually exact but not mutually
// consistent under concurrent writes.
type Stats struct {
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Cache *cache.Cache
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Use(h.Auth.Require)
	r.Get("/stats/{channelId}", ep(h.ChannelStats))
	r.Get("/videos/{channelId}", ep(h.ChannelVideos))
}

func (h *Handler) ChannelStats(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	channelID, err := bson.ObjectIDFromHex(chi.URLParam(r, "channelId"))
	if err != nil {
		return utils.BadRequest("Invalid ChannelId")
	}

	cacheKey := "dashboard:stats:" + channelID.Hex()
	var stats Stats
	if hit, err := h.Cache.Get(ctx, cacheKey, &stats); err != nil {
		h.Log.WithError(err).Warn("stats cache read failed")
	} else if hit {
		return utils.WriteSuccess(w, http.StatusOK, stats, "Channel Stats Fetched Successfully")
	}

	stats.TotalSubscribers, err = h.Store.Subscriptions().CountDocuments(ctx, bson.M{"channel": channelID})
	if err != nil {
		return err
	}

	stats.TotalVideos, err = h.Store.Videos().CountDocuments(ctx, bson.M{"owner": channelID})
	if err != nil {
		return err
	}

	stats.TotalViews, err = h.totalViews(r, channelID)
	if err != nil {
		return err
	}

	stats.TotalLikes, err = h.totalLikes(r, channelID)
	if err != nil {
		return err
	}

	if err := h.Cache.Set(ctx, cacheKey, stats); err != nil {
		h.Log.WithError(err).Warn("stats cache write failed")
	}

	return utils.WriteSuccess(w, http.StatusOK, stats, "Channel Stats Fetched Successfully")
}

// totalViews sums the view counts across the channel's videos. A channel
// with no videos yields an empty aggregate result, which is a legitimate
// zero, not an error.
func (h *Handler) totalViews(r *http.Request, channelID bson.ObjectID) (int64, error) {
	stages := mongo.Pipeline{
		pipe.Match(bson.M{"owner": channelID}),
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"totalViews": bson.M{"$sum": "$views"},
		}}},
	}

	docs, err := pipe.All(r.Context(), h.Store.Videos(), stages)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return toInt64(docs[0]["totalViews"]), nil
}

// totalLikes counts like records across the channel's videos.
func (h *Handler) totalLikes(r *http.Request, channelID bson.ObjectID) (int64, error) {
	stages := mongo.Pipeline{
		pipe.Match(bson.M{"owner": channelID}),
		pipe.Lookup(mdb.LikesCollection, "_id", "target", "likes"),
		pipe.Unwind("$likes"),
		pipe.Match(bson.M{"likes.targetType": "video"}),
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"totalLikes": bson.M{"$sum": 1},
		}}},
	}

	docs, err := pipe.All(r.Context(), h.Store.Videos(), stages)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return toInt64(docs[0]["totalLikes"]), nil
}

func (h *Handler) ChannelVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	channelID, err := bson.ObjectIDFromHex(chi.URLParam(r, "channelId"))
	if err != nil {
		return utils.BadRequest("Invalid ChannelId")
	}

	stages := mongo.Pipeline{
		pipe.Match(bson.M{"owner": channelID}),
		pipe.Sort("createdAt", true),
	}
	videos, err := pipe.All(ctx, h.Store.Videos(), stages)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return utils.WriteSuccess(w, http.StatusOK, videos, "Channel has no videos")
	}

	return utils.WriteSuccess(w, http.StatusOK, videos, "Channel Videos Fetched Successfully")
}

// toInt64 normalizes the numeric BSON types an accumulator may produce.
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
