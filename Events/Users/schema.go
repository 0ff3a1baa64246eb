package users

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is the root entity. Password and refresh token never serialize to
// JSON; pipelines additionally project them away before embedding.
type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id,omitempty"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	Fullname     string          `bson:"fullname" json:"fullname"`
	Password     string          `bson:"password" json:"-"`
	Avatar       string          `bson:"avatar" json:"avatar"`
	CoverImage   string          `bson:"coverImage" json:"coverImage"`
	WatchHistory []bson.ObjectID `bson:"watchHistory" json:"watchHistory"`
	RefreshToken string          `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Summary is the public-safe subset embedded as "owner" in denormalized
// views of videos, comments and tweets.
type Summary struct {
	ID       bson.ObjectID `bson:"_id" json:"_id"`
	Username string        `bson:"username" json:"username"`
	Fullname string        `bson:"fullname" json:"fullname"`
	Avatar   string        `bson:"avatar" json:"avatar"`
}
