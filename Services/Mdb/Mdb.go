package mdb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names. Aggregation $lookup stages reference these literally, so
// they live here instead of being scattered across the handler packages.
const (
	UsersCollection         = "users"
	VideosCollection        = "videos"
	CommentsCollection      = "comments"
	LikesCollection         = "likes"
	TweetsCollection        = "tweets"
	SubscriptionsCollection = "subscriptions"
	PlaylistsCollection     = "playlists"
)

// Store wraps the MongoDB client with typed collection accessors. It is
// constructed once at startup and passed to every handler explicitly.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens the client, verifies the connection and returns the store.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Users() *mongo.Collection         { return s.db.Collection(UsersCollection) }
func (s *Store) Videos() *mongo.Collection        { return s.db.Collection(VideosCollection) }
func (s *Store) Comments() *mongo.Collection      { return s.db.Collection(CommentsCollection) }
func (s *Store) Likes() *mongo.Collection         { return s.db.Collection(LikesCollection) }
func (s *Store) Tweets() *mongo.Collection        { return s.db.Collection(TweetsCollection) }
func (s *Store) Subscriptions() *mongo.Collection { return s.db.Collection(SubscriptionsCollection) }
func (s *Store) Playlists() *mongo.Collection     { return s.db.Collection(PlaylistsCollection) }

// EnsureIndexes creates the indexes the application relies on. The unique
// compound indexes on likes and subscriptions are what make the toggle
// handlers race-free: a concurrent duplicate insert fails with a duplicate
// key error instead of producing a second row.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		VideosCollection: {
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "video", Value: 1}}},
		},
		LikesCollection: {
			{
				Keys:    bson.D{{Key: "targetType", Value: 1}, {Key: "target", Value: 1}, {Key: "likedBy", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		SubscriptionsCollection: {
			{
				Keys:    bson.D{{Key: "channel", Value: 1}, {Key: "subscriber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		PlaylistsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	return nil
}
