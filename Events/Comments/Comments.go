package comments

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	auth "github.com/pritamduttaofficial/VideoTube/Services/Auth"
	mdb "github.com/pritamduttaofficial/VideoTube/Services/Mdb"
	pipe "github.com/pritamduttaofficial/VideoTube/Services/Pipeline"
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

const notAuthorizedMsg = "Not authorized to perform this action"

type Comment struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Video     bson.ObjectID `bson:"video" json:"video"`
	Owner     bson.ObjectID `bson:"owner" json:"owner"`
	Content   string        `bson:"content" json:"content"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Use(h.Auth.Require)
	r.Get("/{videoId}", ep(h.ListForVideo))
	r.Post("/{videoId}", ep(h.Add))
	r.Patch("/c/{commentId}", ep(h.Update))
	r.Delete("/c/{commentId}", ep(h.Delete))
}

// ListForVideo pages through a video's comments with the comment owner
// joined inline. The id is validated before any store access.
func (h *Handler) ListForVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	params, err := pipe.ParseParams(r.URL.Query())
	if err != nil {
		return utils.BadRequest(err.Error())
	}

	stages := append(mongo.Pipeline{pipe.Match(bson.M{"video": videoID})},
		pipe.LookupOwnerSummary("owner", "owner")...)
	stages = append(stages, pipe.Sort("createdAt", true))

	page, err := pipe.Paginate(ctx, h.Store.Comments(), stages, params)
	if err != nil {
		return err
	}
	return utils.WriteSuccess(w, http.StatusOK, page, "Comments Fetched Successfully")
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return utils.BadRequest("Content is required to add comment")
	}

	count, err := h.Store.Videos().CountDocuments(ctx, bson.M{"_id": videoID})
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.NotFound("Video not found")
	}

	now := time.Now()
	comment := Comment{
		Video:     videoID,
		Owner:     uid,
		Content:   body.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := h.Store.Comments().InsertOne(ctx, comment)
	if err != nil {
		return err
	}

	// Return the created comment with the owner summary populated.
	stages := append(mongo.Pipeline{pipe.Match(bson.M{"_id": res.InsertedID.(bson.ObjectID)})},
		pipe.LookupOwnerSummary("owner", "owner")...)
	docs, err := pipe.All(ctx, h.Store.Comments(), stages)
	if err != nil || len(docs) == 0 {
		return utils.Internal("Failed to add comment")
	}

	return utils.WriteSuccess(w, http.StatusCreated, docs[0], "Comment Added Successfully")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	commentID, err := bson.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		return utils.BadRequest("Invalid CommentId")
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return utils.BadRequest("Content is required to update comment")
	}

	if err := h.requireOwned(r, commentID, uid); err != nil {
		return err
	}

	var updated Comment
	err = h.Store.Comments().FindOneAndUpdate(ctx,
		bson.M{"_id": commentID},
		bson.M{"$set": bson.M{"content": body.Content, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, "Comment Updated Successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	commentID, err := bson.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		return utils.BadRequest("Invalid CommentId")
	}

	if err := h.requireOwned(r, commentID, uid); err != nil {
		return err
	}

	if _, err := h.Store.Comments().DeleteOne(ctx, bson.M{"_id": commentID}); err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Comment Deleted Successfully")
}

// requireOwned conflates missing and foreign into the same 403 on purpose.
func (h *Handler) requireOwned(r *http.Request, commentID, uid bson.ObjectID) error {
	var comment Comment
	err := h.Store.Comments().FindOne(r.Context(), bson.M{"_id": commentID}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.Forbidden(notAuthorizedMsg)
	}
	if err != nil {
		return err
	}
	if comment.Owner != uid {
		return utils.Forbidden(notAuthorizedMsg)
	}
	return nil
}
