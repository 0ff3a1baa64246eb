package likes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	auth "github.com/pritamduttaofficial/VideoTube/Services/Auth"
	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
	pipe "github.com/pritamduttaofficial/VideoTube/Services/Pipeline"
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

// TargetType discriminates what a like points at. Exactly one target is
// possible by construction; there are no optional per-kind fields.
type TargetType string

const (
	TargetVideo   TargetType = "video"
	TargetComment TargetType = "comment"
	TargetTweet   TargetType = "tweet"
)

type Like struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	TargetType TargetType    `bson:"targetType" json:"targetType"`
	Target     bson.ObjectID `bson:"target" json:"target"`
	LikedBy    bson.ObjectID `bson:"likedBy" json:"likedBy"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Use(h.Auth.Require)
	r.Post("/toggle/v/{videoId}", ep(h.ToggleVideoLike))
	r.Post("/toggle/c/{commentId}", ep(h.ToggleCommentLike))
	r.Post("/toggle/t/{tweetId}", ep(h.ToggleTweetLike))
	r.Get("/videos", ep(h.LikedVideos))
	r.Get("/video/{videoId}", ep(h.VideoLikesCount))
}

func (h *Handler) ToggleVideoLike(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, TargetVideo, "videoId", h.Store.Videos(), "Video")
}

func (h *Handler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, TargetComment, "commentId", h.Store.Comments(), "Comment")
}

func (h *Handler) ToggleTweetLike(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, TargetTweet, "tweetId", h.Store.Tweets(), "Tweet")
}

// toggle removes the (target, actor) like when present, otherwise inserts
// it. Delete-first plus the unique index keeps concurrent identical toggles
// from ever producing duplicate rows: the losing insert fails with a
// duplicate key error and is treated as already liked.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, targetType TargetType, param string, targets *mongo.Collection, label string) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	targetID, err := bson.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		return utils.BadRequest("Invalid " + label + "Id")
	}

	count, err := targets.CountDocuments(ctx, bson.M{"_id": targetID})
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.NotFound(label + " not found")
	}

	filter := bson.M{"targetType": targetType, "target": targetID, "likedBy": uid}
	res, err := h.Store.Likes().DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		return utils.WriteSuccess(w, http.StatusOK, bson.M{"liked": false}, label+" Unliked successfully")
	}

	like := Like{
		TargetType: targetType,
		Target:     targetID,
		LikedBy:    uid,
		CreatedAt:  time.Now(),
	}
	if _, err := h.Store.Likes().InsertOne(ctx, like); err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{"liked": true}, label+" Liked successfully")
}

// LikedVideos returns the caller's liked videos as a sequence of video
// documents, each with an embedded owner summary — the like wrapper records
// never reach the client.
func (h *Handler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	stages := mongo.Pipeline{
		pipe.Match(bson.M{"likedBy": uid, "targetType": TargetVideo}),
		pipe.Lookup(mdb.VideosCollection, "target", "_id", "videoDetails"),
		pipe.Unwind("$videoDetails"),
		pipe.Lookup(mdb.UsersCollection, "videoDetails.owner", "_id", "videoDetails.ownerDetails"),
		pipe.Unwind("$videoDetails.ownerDetails"),
		pipe.AddFields(bson.M{
			"videoDetails.owner": bson.M{
				"_id":      "$videoDetails.ownerDetails._id",
				"fullname": "$videoDetails.ownerDetails.fullname",
				"username": "$videoDetails.ownerDetails.username",
				"avatar":   "$videoDetails.ownerDetails.avatar",
			},
		}),
		pipe.Project(bson.M{"videoDetails.ownerDetails": 0}),
		pipe.ReplaceRoot("$videoDetails"),
	}

	likedVideos, err := pipe.All(ctx, h.Store.Likes(), stages)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, likedVideos, "Liked Videos Fetched Successfully")
}

func (h *Handler) VideoLikesCount(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	likesCount, err := h.Store.Likes().CountDocuments(ctx, bson.M{
		"targetType": TargetVideo,
		"target":     videoID,
	})
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{"likesCount": likesCount}, "Likes count retrieved successfully")
}
