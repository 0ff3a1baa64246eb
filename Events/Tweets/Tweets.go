package tweets

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

type Tweet struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
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
	r.Post("/", ep(h.Create))
	r.Get("/user/{userId}", ep(h.ListByUser))
	r.Patch("/{tweetId}", ep(h.Update))
	r.Delete("/{tweetId}", ep(h.Delete))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return utils.BadRequest("Content is required to tweet something")
	}

	now := time.Now()
	tweet := Tweet{
		Owner:     uid,
		Content:   body.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := h.Store.Tweets().InsertOne(ctx, tweet)
	if err != nil {
		return err
	}
	tweet.ID = res.InsertedID.(bson.ObjectID)

	return utils.WriteSuccess(w, http.StatusCreated, tweet, "Tweeted Successfully")
}

func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	userID, err := bson.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		return utils.BadRequest("Invalid UserId")
	}

	cursor, err := h.Store.Tweets().Find(ctx, bson.M{"owner": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	tweets := []Tweet{}
	if err := cursor.All(ctx, &tweets); err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, tweets, "Tweets Fetched Successfully")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	tweetID, err := bson.ObjectIDFromHex(chi.URLParam(r, "tweetId"))
	if err != nil {
		return utils.BadRequest("Invalid TweetId")
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Content) == "" {
		return utils.BadRequest("Content is required to update a tweet")
	}

	if err := h.requireOwned(r, tweetID, uid); err != nil {
		return err
	}

	var updated Tweet
	err = h.Store.Tweets().FindOneAndUpdate(ctx,
		bson.M{"_id": tweetID},
		bson.M{"$set": bson.M{"content": body.Content, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, updated, "Tweet Updated Successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	tweetID, err := bson.ObjectIDFromHex(chi.URLParam(r, "tweetId"))
	if err != nil {
		return utils.BadRequest("Invalid TweetId")
	}

	if err := h.requireOwned(r, tweetID, uid); err != nil {
		return err
	}

	if _, err := h.Store.Tweets().DeleteOne(ctx, bson.M{"_id": tweetID}); err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Tweet Deleted Successfully")
}

func (h *Handler) requireOwned(r *http.Request, tweetID, uid bson.ObjectID) error {
	var tweet Tweet
	err := h.Store.Tweets().FindOne(r.Context(), bson.M{"_id": tweetID}).Decode(&tweet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.Forbidden(notAuthorizedMsg)
	}
	if err != nil {
		return err
	}
	if tweet.Owner != uid {
		return utils.Forbidden(notAuthorizedMsg)
	}
	return nil
}
