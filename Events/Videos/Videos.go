package videos

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
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
	storage "github.com/pritamduttaofficial/VideoTube/Services/Storage"
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

const maxUploadMemory = 32 << 20

// Missing and not-owned are deliberately the same answer so a caller cannot
// probe for the existence of records it does not own.
const notAuthorizedMsg = "Not authorized to perform this action"

var sortableFields = map[string]bool{
	"createdAt": true,
	"views":     true,
	"duration":  true,
	"title":     true,
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Media *storage.MediaStore
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Use(h.Auth.Require)
	r.Get("/", ep(h.List))
	r.Post("/", ep(h.Publish))
	r.Get("/{videoId}", ep(h.Get))
	r.Patch("/{videoId}", ep(h.Update))
	r.Delete("/{videoId}", ep(h.Delete))
	r.Patch("/toggle/publish/{videoId}", ep(h.TogglePublish))
	r.Patch("/view/{videoId}", ep(h.IncrementViews))
}

// List serves the paginated video feed: optional free-text query, optional
// owner filter, owner details joined inline.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	query := r.URL.Query()

	params, err := pipe.ParseParams(query)
	if err != nil {
		return utils.BadRequest(err.Error())
	}

	match := bson.M{}
	if q := strings.TrimSpace(query.Get("query")); q != "" {
		match["$text"] = pipe.TextSearch(q)
	}
	if rawOwner := query.Get("userId"); rawOwner != "" {
		ownerID, err := bson.ObjectIDFromHex(rawOwner)
		if err != nil {
			return utils.BadRequest("Invalid UserId")
		}
		match["owner"] = ownerID
	}

	sortBy := query.Get("sortBy")
	if sortBy == "" {
		sortBy = "createdAt"
	}
	if !sortableFields[sortBy] {
		return utils.BadRequest("Invalid sort field: " + sortBy)
	}
	descending := query.Get("sortType") != "asc"

	stages := mongo.Pipeline{
		pipe.Match(match),
		pipe.Lookup(mdb.UsersCollection, "owner", "_id", "ownerDetails"),
		pipe.Unwind("$ownerDetails"),
		pipe.Project(bson.M{
			"ownerDetails.password":     0,
			"ownerDetails.refreshToken": 0,
		}),
		pipe.Sort(sortBy, descending),
	}

	page, err := pipe.Paginate(ctx, h.Store.Videos(), stages, params)
	if err != nil {
		return err
	}
	return utils.WriteSuccess(w, http.StatusOK, page, "Videos Fetched Successfully")
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return utils.BadRequest("Invalid multipart form")
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		return utils.BadRequest("Video title is required")
	}
	if description == "" {
		return utils.BadRequest("Video description is required")
	}

	duration := 0.0
	if raw := r.FormValue("duration"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			return utils.BadRequest("Invalid duration")
		}
		duration = parsed
	}

	videoPath, err := utils.StageUpload(r, "videoFile")
	if err != nil {
		return utils.BadRequest("Video File is required")
	}
	videoURL, err := h.Media.Upload(ctx, videoPath,
		storage.ObjectKey("videos", uid.Hex(), filepath.Ext(videoPath)),
		utils.ContentTypeByExt(videoPath))
	if err != nil {
		h.Log.WithError(err).Error("publish: video upload failed")
		return utils.Internal("Failed to upload video file")
	}

	thumbnailPath, err := utils.StageUpload(r, "thumbnail")
	if err != nil {
		return utils.BadRequest("Thumbnail is required")
	}
	thumbnailURL, err := h.Media.Upload(ctx, thumbnailPath,
		storage.ObjectKey("thumbnails", uid.Hex(), filepath.Ext(thumbnailPath)),
		utils.ContentTypeByExt(thumbnailPath))
	if err != nil {
		h.Log.WithError(err).Error("publish: thumbnail upload failed")
		return utils.Internal("Failed to upload thumbnail")
	}

	now := time.Now()
	video := Video{
		Owner:       uid,
		Title:       title,
		Description: description,
		VideoFile:   videoURL,
		Thumbnail:   thumbnailURL,
		Duration:    duration,
		Views:       0,
		IsPublic:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := h.Store.Videos().InsertOne(ctx, video)
	if err != nil {
		return err
	}
	video.ID = res.InsertedID.(bson.ObjectID)

	return utils.WriteSuccess(w, http.StatusCreated, video, "Video Published Successfully")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	stages := append(mongo.Pipeline{pipe.Match(bson.M{"_id": videoID})},
		pipe.LookupOwnerSummary("owner", "owner")...)

	docs, err := pipe.All(ctx, h.Store.Videos(), stages)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return utils.NotFound("Video does not exist")
	}

	return utils.WriteSuccess(w, http.StatusOK, docs[0], "Video fetched successfully")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return utils.BadRequest("Invalid multipart form")
	}
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		return utils.BadRequest("Video title is required")
	}
	if description == "" {
		return utils.BadRequest("Video description is required")
	}

	if _, err := h.owned(r, videoID, uid); err != nil {
		return err
	}

	fields := bson.M{
		"title":       title,
		"description": description,
		"updatedAt":   time.Now(),
	}

	if thumbnailPath, err := utils.StageUpload(r, "thumbnail"); err == nil {
		thumbnailURL, err := h.Media.Upload(ctx, thumbnailPath,
			storage.ObjectKey("thumbnails", uid.Hex(), filepath.Ext(thumbnailPath)),
			utils.ContentTypeByExt(thumbnailPath))
		if err != nil {
			h.Log.WithError(err).Error("update: thumbnail upload failed")
			return utils.Internal("Error while uploading thumbnail")
		}
		fields["thumbnail"] = thumbnailURL
	}

	var updated Video
	err = h.Store.Videos().FindOneAndUpdate(ctx,
		bson.M{"_id": videoID},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, "Video Updated Successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	video, err := h.owned(r, videoID, uid)
	if err != nil {
		return err
	}

	if _, err := h.Store.Videos().DeleteOne(ctx, bson.M{"_id": videoID}); err != nil {
		return err
	}

	// Media cleanup is best effort; the record is already gone.
	for _, url := range []string{video.VideoFile, video.Thumbnail} {
		if key := h.Media.KeyFromURL(url); key != "" {
			if err := h.Media.Delete(ctx, key); err != nil {
				h.Log.WithError(err).Warnf("failed to delete media object %s", key)
			}
		}
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Video Deleted Successfully")
}

func (h *Handler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	video, err := h.owned(r, videoID, uid)
	if err != nil {
		return err
	}

	var updated Video
	err = h.Store.Videos().FindOneAndUpdate(ctx,
		bson.M{"_id": videoID},
		bson.M{"$set": bson.M{"isPublic": !video.IsPublic, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, "Video toggled Successfully")
}

// IncrementViews bumps the view count server-side; the counter only ever
// moves forward.
func (h *Handler) IncrementViews(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	var updated Video
	err = h.Store.Videos().FindOneAndUpdate(ctx,
		bson.M{"_id": videoID},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("Video not found")
	}
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, "View count updated")
}

// owned fetches the video only if it belongs to uid; a missing record and a
// foreign record produce the identical 403.
func (h *Handler) owned(r *http.Request, videoID, uid bson.ObjectID) (*Video, error) {
	var video Video
	err := h.Store.Videos().FindOne(r.Context(), bson.M{"_id": videoID}).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.Forbidden(notAuthorizedMsg)
	}
	if err != nil {
		return nil, err
	}
	if video.Owner != uid {
		return nil, utils.Forbidden(notAuthorizedMsg)
	}
	return &video, nil
}
