package playlists

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
	utils "github.com/pritamduttaofficial/VideoTube/Utils"
)

const notAuthorizedMsg = "Not authorized to perform this action"

type Playlist struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"_id,omitempty"`
	Owner       bson.ObjectID   `bson:"owner" json:"owner"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description" json:"description"`
	Videos      []bson.ObjectID `bson:"videos" json:"videos"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Use(h.Auth.Require)
	r.Post("/", ep(h.Create))
	r.Get("/user/{userId}", ep(h.ListByUser))
	r.Get("/{playlistId}", ep(h.Get))
	r.Patch("/{playlistId}", ep(h.Update))
	r.Delete("/{playlistId}", ep(h.Delete))
	r.Patch("/add/{videoId}/{playlistId}", ep(h.AddVideo))
	r.Patch("/remove/{videoId}/{playlistId}", ep(h.RemoveVideo))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Description) == "" {
		return utils.BadRequest("Name and description are required to create a playlist")
	}

	now := time.Now()
	playlist := Playlist{
		Owner:       uid,
		Name:        body.Name,
		Description: body.Description,
		Videos:      []bson.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := h.Store.Playlists().InsertOne(ctx, playlist)
	if err != nil {
		return err
	}
	playlist.ID = res.InsertedID.(bson.ObjectID)

	return utils.WriteSuccess(w, http.StatusCreated, playlist, "Playlist Created Successfully")
}

func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	userID, err := bson.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		return utils.BadRequest("Invalid UserId")
	}

	cursor, err := h.Store.Playlists().Find(ctx, bson.M{"owner": userID})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	playlists := []Playlist{}
	if err := cursor.All(ctx, &playlists); err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, playlists, "Playlist Fetched Successfully")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	playlistID, err := bson.ObjectIDFromHex(chi.URLParam(r, "playlistId"))
	if err != nil {
		return utils.BadRequest("Invalid PlaylistId")
	}

	var playlist Playlist
	err = h.Store.Playlists().FindOne(ctx, bson.M{"_id": playlistID}).Decode(&playlist)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("Playlist not found")
	}
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, playlist, "Playlist Fetched Successfully")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	playlistID, err := bson.ObjectIDFromHex(chi.URLParam(r, "playlistId"))
	if err != nil {
		return utils.BadRequest("Invalid PlaylistId")
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Description) == "" {
		return utils.BadRequest("Name and description are required to update a playlist")
	}

	if _, err := h.owned(r, playlistID, uid); err != nil {
		return err
	}

	var updated Playlist
	err = h.Store.Playlists().FindOneAndUpdate(ctx,
		bson.M{"_id": playlistID},
		bson.M{"$set": bson.M{"name": body.Name, "description": body.Description, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, "Playlist Updated Successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	playlistID, err := bson.ObjectIDFromHex(chi.URLParam(r, "playlistId"))
	if err != nil {
		return utils.BadRequest("Invalid PlaylistId")
	}

	if _, err := h.owned(r, playlistID, uid); err != nil {
		return err
	}

	if _, err := h.Store.Playlists().DeleteOne(ctx, bson.M{"_id": playlistID}); err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Playlist Deleted Successfully")
}

// AddVideo appends a video to the playlist after a membership check; adding
// an already-present video is a client error, not a silent no-op.
func (h *Handler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	return h.changeMembership(w, r, true)
}

// RemoveVideo pulls a video out of the playlist; removing an absent video
// is rejected the same way.
func (h *Handler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	return h.changeMembership(w, r, false)
}

func (h *Handler) changeMembership(w http.ResponseWriter, r *http.Request, add bool) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	playlistID, err := bson.ObjectIDFromHex(chi.URLParam(r, "playlistId"))
	if err != nil {
		return utils.BadRequest("Invalid PlaylistId")
	}
	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	playlist, err := h.owned(r, playlistID, uid)
	if err != nil {
		return err
	}

	count, err := h.Store.Videos().CountDocuments(ctx, bson.M{"_id": videoID})
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.NotFound("Video not found")
	}

	contains := false
	for _, id := range playlist.Videos {
		if id == videoID {
			contains = true
			break
		}
	}

	var update bson.M
	var message string
	if add {
		if contains {
			return utils.BadRequest("Video Already Exist")
		}
		update = bson.M{"$push": bson.M{"videos": videoID}}
		message = "Video Added To Playlist"
	} else {
		if !contains {
			return utils.BadRequest("Video Already Removed")
		}
		update = bson.M{"$pull": bson.M{"videos": videoID}}
		message = "Video Removed From Playlist"
	}
	update["$set"] = bson.M{"updatedAt": time.Now()}

	var updated Playlist
	err = h.Store.Playlists().FindOneAndUpdate(ctx,
		bson.M{"_id": playlistID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, message)
}

func (h *Handler) owned(r *http.Request, playlistID, uid bson.ObjectID) (*Playlist, error) {
	var playlist Playlist
	err := h.Store.Playlists().FindOne(r.Context(), bson.M{"_id": playlistID}).Decode(&playlist)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.Forbidden(notAuthorizedMsg)
	}
	if err != nil {
		return nil, err
	}
	if playlist.Owner != uid {
		return nil, utils.Forbidden(notAuthorizedMsg)
	}
	return &playlist, nil
}
