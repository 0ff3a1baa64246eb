package subscriptions

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

type Subscription struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Channel    bson.ObjectID `bson:"channel" json:"channel"`
	Subscriber bson.ObjectID `bson:"subscriber" json:"subscriber"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
}

// publicUserFields is what subscriber/channel listings expose of a user.
var publicUserFields = bson.M{
	"fullname":   1,
	"username":   1,
	"avatar":     1,
	"coverImage": 1,
	"email":      1,
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Use(h.Auth.Require)
	r.Post("/c/{channelId}", ep(h.Toggle))
	r.Get("/c/{channelId}", ep(h.Subscribers))
	r.Get("/u/{subscriberId}", ep(h.SubscribedChannels))
}

// Toggle flips the caller's subscription to a channel. Delete-first plus the
// unique (channel, subscriber) index makes concurrent identical toggles
// collapse into one subscription instead of duplicating the pair.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	channelID, err := bson.ObjectIDFromHex(chi.URLParam(r, "channelId"))
	if err != nil {
		return utils.BadRequest("Invalid ChannelId")
	}
	if channelID == uid {
		return utils.BadRequest("Cannot subscribe to your own channel")
	}

	count, err := h.Store.Users().CountDocuments(ctx, bson.M{"_id": channelID})
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.NotFound("Channel not found")
	}

	filter := bson.M{"channel": channelID, "subscriber": uid}
	res, err := h.Store.Subscriptions().DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		return utils.WriteSuccess(w, http.StatusOK, bson.M{"subscribed": false}, "Channel Unsubscribed")
	}

	sub := Subscription{
		Channel:    channelID,
		Subscriber: uid,
		CreatedAt:  time.Now(),
	}
	if _, err := h.Store.Subscriptions().InsertOne(ctx, sub); err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{"subscribed": true}, "Channel Subscribed")
}

// Subscribers lists the users subscribed to a channel, public fields only.
func (h *Handler) Subscribers(w http.ResponseWriter, r *http.Request) error {
	return h.listUsers(w, r, "channelId", "channel", "subscriber", "Channel Subscribers Fetched Successfully")
}

// SubscribedChannels lists the channels a user has subscribed to.
func (h *Handler) SubscribedChannels(w http.ResponseWriter, r *http.Request) error {
	return h.listUsers(w, r, "subscriberId", "subscriber", "channel", "Subscribed Channels Fetched Successfully")
}

// listUsers runs the symmetric subscription→user join: filter subscriptions
// by matchField, join the users referenced by joinField and surface them as
// the result documents.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request, param, matchField, joinField, message string) error {
	ctx := r.Context()

	id, err := bson.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		return utils.BadRequest("Invalid " + param)
	}

	stages := mongo.Pipeline{
		pipe.Match(bson.M{matchField: id}),
		pipe.Lookup(mdb.UsersCollection, joinField, "_id", "user"),
		pipe.Unwind("$user"),
		pipe.ReplaceRoot("$user"),
		pipe.Project(publicUserFields),
	}

	users, err := pipe.All(ctx, h.Store.Subscriptions(), stages)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, users, message)
}
