package users

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
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

// MediaStore is the slice of the media layer the user handlers touch.
// *storage.MediaStore satisfies it.
type MediaStore interface {
	Upload(ctx context.Context, localPath, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) string
}

type Handler struct {
	Store *mdb.Store
	Auth  *auth.Service
	Media MediaStore
	Log   *logrus.Logger
}

func (h *Handler) Handle(r chi.Router) {
	ep := func(fn utils.HandlerFunc) http.HandlerFunc { return utils.Endpoint(h.Log, fn) }

	r.Post("/signup", ep(h.SignUp))
	r.Post("/login", ep(h.Login))
	r.Post("/refresh-token", ep(h.RefreshToken))

	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Require)
		r.Post("/logout", ep(h.Logout))
		r.Post("/update-password", ep(h.UpdatePassword))
		r.Get("/current-user", ep(h.CurrentUser))
		r.Patch("/update-account", ep(h.UpdateAccount))
		r.Patch("/update-avatar", ep(h.UpdateAvatar))
		r.Patch("/update-cover-image", ep(h.UpdateCoverImage))
		r.Get("/channel/{username}", ep(h.ChannelProfile))
		r.Get("/watch-history", ep(h.WatchHistory))
		r.Patch("/watch-history/{videoId}", ep(h.AddToWatchHistory))
	})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return utils.BadRequest("Invalid multipart form")
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.TrimSpace(r.FormValue("email"))
	fullname := strings.TrimSpace(r.FormValue("fullname"))
	password := r.FormValue("password")

	if username == "" {
		return utils.BadRequest("Username is required")
	}
	if email == "" {
		return utils.BadRequest("Email is required")
	}
	if fullname == "" {
		return utils.BadRequest("Fullname is required")
	}
	if password == "" {
		return utils.BadRequest("Password is required")
	}

	count, err := h.Store.Users().CountDocuments(ctx, bson.M{
		"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}},
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.Conflict("User already exist")
	}

	avatarPath, err := utils.StageUpload(r, "avatar")
	if err != nil {
		return utils.BadRequest("Avatar is required")
	}
	avatarURL, err := h.Media.Upload(ctx, avatarPath,
		storage.ObjectKey("avatars", username, filepath.Ext(avatarPath)),
		utils.ContentTypeByExt(avatarPath))
	if err != nil {
		h.Log.WithError(err).Error("signup: avatar upload failed")
		return utils.Internal("Failed to upload avatar")
	}

	// Cover image is optional; a missing field becomes an empty string.
	coverImageURL := ""
	if coverPath, err := utils.StageUpload(r, "coverImage"); err == nil {
		coverImageURL, err = h.Media.Upload(ctx, coverPath,
			storage.ObjectKey("covers", username, filepath.Ext(coverPath)),
			utils.ContentTypeByExt(coverPath))
		if err != nil {
			h.Log.WithError(err).Error("signup: cover image upload failed")
			return utils.Internal("Failed to upload cover image")
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now()
	user := User{
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		Password:     hash,
		Avatar:       avatarURL,
		CoverImage:   coverImageURL,
		WatchHistory: []bson.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := h.Store.Users().InsertOne(ctx, user)
	if err != nil {
		// A concurrent signup can slip past the pre-check and fail on the
		// unique index; the uploaded objects must not be left orphaned.
		h.cleanupMedia(ctx, avatarURL, coverImageURL)
		if mongo.IsDuplicateKeyError(err) {
			return utils.Conflict("User already exist")
		}
		return err
	}

	created, err := h.findByID(r, res.InsertedID.(bson.ObjectID))
	if err != nil {
		return utils.Internal("Something went wrong while signup")
	}

	return utils.WriteSuccess(w, http.StatusCreated, created, "User Registered Successfully")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if body.Email == "" {
		return utils.BadRequest("Email is required")
	}

	var user User
	err := h.Store.Users().FindOne(ctx, bson.M{"email": body.Email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("User does not exist")
	}
	if err != nil {
		return err
	}

	if !auth.CheckPasswordHash(body.Password, user.Password) {
		return utils.Unauthorized("Incorrect Password")
	}

	accessToken, refreshToken, err := h.issueTokens(r, user.ID)
	if err != nil {
		return utils.Internal("Something went wrong while token generation")
	}

	setTokenCookies(w, accessToken, refreshToken)
	user.RefreshToken = ""
	return utils.WriteSuccess(w, http.StatusOK, user, "Logged In Successfully")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	_, err := h.Store.Users().UpdateOne(r.Context(),
		bson.M{"_id": uid},
		bson.M{"$unset": bson.M{"refreshToken": 1}})
	if err != nil {
		return err
	}

	clearTokenCookies(w)
	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Logged Out Successfully")
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	token := auth.TokenFromRequest(r, auth.RefreshTokenCookie)
	if token == "" {
		return utils.Unauthorized("Unauthorized Access")
	}

	claims, err := h.Auth.VerifyRefreshToken(token)
	if err != nil {
		return utils.Unauthorized("Invalid Refresh Token")
	}
	uid, err := bson.ObjectIDFromHex(claims.UID)
	if err != nil {
		return utils.Unauthorized("Invalid Refresh Token")
	}

	var user User
	err = h.Store.Users().FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.Unauthorized("Invalid Refresh Token")
	}
	if err != nil {
		return err
	}

	// The presented token must match the single active value persisted at
	// the last login/refresh; anything else means it was rotated out.
	if user.RefreshToken == "" || user.RefreshToken != token {
		return utils.Unauthorized("Refresh Token Expired")
	}

	accessToken, refreshToken, err := h.issueTokens(r, user.ID)
	if err != nil {
		return utils.Internal("Something went wrong while token generation")
	}

	setTokenCookies(w, accessToken, refreshToken)
	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Access Token Refreshed")
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	var body struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if body.NewPassword == "" || body.NewPassword != body.ConfirmPassword {
		return utils.BadRequest("Confirm Your New Password")
	}

	var user User
	if err := h.Store.Users().FindOne(ctx, bson.M{"_id": uid}).Decode(&user); err != nil {
		return err
	}
	if !auth.CheckPasswordHash(body.OldPassword, user.Password) {
		return utils.BadRequest("Invalid Old Password")
	}

	hash, err := auth.HashPassword(body.NewPassword)
	if err != nil {
		return err
	}
	_, err = h.Store.Users().UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}

	return utils.WriteSuccess(w, http.StatusOK, bson.M{}, "Password Updated Successfully")
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}
	user, err := h.findByID(r, uid)
	if err != nil {
		return err
	}
	return utils.WriteSuccess(w, http.StatusOK, user, "Current User Fetched")
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	var body struct {
		Fullname string `json:"fullname"`
		Email    string `json:"email"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		return utils.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(body.Email) == "" {
		return utils.BadRequest("Email is required")
	}
	if strings.TrimSpace(body.Fullname) == "" {
		return utils.BadRequest("Fullname is required")
	}

	user, err := h.updateFields(r, uid, bson.M{
		"fullname": body.Fullname,
		"email":    body.Email,
	})
	if err != nil {
		return err
	}
	return utils.WriteSuccess(w, http.StatusOK, user, "User Updated Successfully")
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "avatar", "avatars", "Avatar Updated Successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "coverImage", "covers", "CoverImage Updated Successfully")
}

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field, prefix, message string) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return utils.BadRequest("Invalid multipart form")
	}
	path, err := utils.StageUpload(r, field)
	if err != nil {
		return utils.BadRequest(field + " file is required")
	}

	url, err := h.Media.Upload(ctx, path,
		storage.ObjectKey(prefix, uid.Hex(), filepath.Ext(path)),
		utils.ContentTypeByExt(path))
	if err != nil {
		h.Log.WithError(err).Errorf("failed to upload %s", field)
		return utils.Internal("Error while uploading " + field)
	}

	user, err := h.updateFields(r, uid, bson.M{field: url})
	if err != nil {
		return err
	}
	return utils.WriteSuccess(w, http.StatusOK, user, message)
}

// ChannelProfile resolves a channel by username and decorates it with
// subscriber counts and whether the requesting viewer is subscribed.
func (h *Handler) ChannelProfile(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	viewerID, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		return utils.BadRequest("Invalid username through url")
	}

	stages := mongo.Pipeline{
		pipe.Match(bson.M{"username": username}),
		pipe.Lookup(mdb.SubscriptionsCollection, "_id", "channel", "subscribers"),
		pipe.Lookup(mdb.SubscriptionsCollection, "_id", "subscriber", "subscribedTo"),
		pipe.AddFields(bson.M{
			"subscribersCount":         bson.M{"$size": "$subscribers"},
			"channelSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed": bson.M{"$cond": bson.M{
				"if":   bson.M{"$in": bson.A{viewerID, "$subscribers.subscriber"}},
				"then": true,
				"else": false,
			}},
		}),
		pipe.Project(bson.M{
			"fullname":                 1,
			"username":                 1,
			"subscribersCount":         1,
			"channelSubscribedToCount": 1,
			"isSubscribed":             1,
			"avatar":                   1,
			"coverImage":               1,
			"email":                    1,
		}),
	}

	docs, err := pipe.All(ctx, h.Store.Users(), stages)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return utils.NotFound("Channel doesn't exist")
	}

	return utils.WriteSuccess(w, http.StatusOK, docs[0], "User Channel Fetched Successfully")
}

func (h *Handler) AddToWatchHistory(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	videoID, err := bson.ObjectIDFromHex(chi.URLParam(r, "videoId"))
	if err != nil {
		return utils.BadRequest("Invalid VideoId")
	}

	count, err := h.Store.Videos().CountDocuments(ctx, bson.M{"_id": videoID})
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.NotFound("Video not found")
	}

	// $addToSet keeps duplicate suppression atomic even when the same video
	// is watched twice concurrently.
	_, err = h.Store.Users().UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$addToSet": bson.M{"watchHistory": videoID}})
	if err != nil {
		return err
	}

	var user User
	if err := h.Store.Users().FindOne(ctx, bson.M{"_id": uid}).Decode(&user); err != nil {
		return err
	}
	return utils.WriteSuccess(w, http.StatusOK, user.WatchHistory, "Video added to watch history")
}

// WatchHistory joins the caller's watch-history ids against the videos
// collection, each video carrying a single owner summary.
func (h *Handler) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	uid, ok := auth.CallerID(r)
	if !ok {
		return utils.Unauthorized("Unauthorized Access")
	}

	stages := mongo.Pipeline{
		pipe.Match(bson.M{"_id": uid}),
		pipe.LookupPipeline(mdb.VideosCollection, "watchHistory", "_id", "watchHistory",
			pipe.LookupOwnerSummary("owner", "owner")),
		pipe.Project(bson.M{"watchHistory": 1}),
	}

	docs, err := pipe.All(ctx, h.Store.Users(), stages)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return utils.NotFound("User not found")
	}

	return utils.WriteSuccess(w, http.StatusOK, docs[0]["watchHistory"], "Watch History Fetched Successfully")
}

// cleanupMedia removes uploaded objects after a failed signup. Best effort;
// the insert failure already decided the response.
func (h *Handler) cleanupMedia(ctx context.Context, urls ...string) {
	for _, url := range urls {
		key := h.Media.KeyFromURL(url)
		if key == "" {
			continue
		}
		if err := h.Media.Delete(ctx, key); err != nil {
			h.Log.WithError(err).Warnf("failed to delete media object %s", key)
		}
	}
}

// issueTokens generates the access/refresh pair and persists the refresh
// token as the user's single active value.
func (h *Handler) issueTokens(r *http.Request, uid bson.ObjectID) (string, string, error) {
	accessToken, err := h.Auth.GenerateAccessToken(uid.Hex())
	if err != nil {
		return "", "", err
	}
	refreshToken, err := h.Auth.GenerateRefreshToken(uid.Hex())
	if err != nil {
		return "", "", err
	}
	_, err = h.Store.Users().UpdateOne(r.Context(),
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"refreshToken": refreshToken}})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (h *Handler) findByID(r *http.Request, id bson.ObjectID) (*User, error) {
	var user User
	err := h.Store.Users().FindOne(r.Context(), bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.Unauthorized("Invalid Access Token")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *Handler) updateFields(r *http.Request, id bson.ObjectID, fields bson.M) (*User, error) {
	fields["updatedAt"] = time.Now()
	var user User
	err := h.Store.Users().FindOneAndUpdate(r.Context(),
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.Unauthorized("Invalid Access Token")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func setTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	for name, value := range map[string]string{
		auth.AccessTokenCookie:  accessToken,
		auth.RefreshTokenCookie: refreshToken,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
