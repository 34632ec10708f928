package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionFlagged = "flaggedContent"
	CollectionUsers   = "users"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrFlaggedNotFound = errors.New("flagged record not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	// ErrDuplicateReport surfaces a unique-index conflict on the pending
	// user-report key; callers retry as an increment.
	ErrDuplicateReport = errors.New("pending report already exists")
)

// Connect dials the document store and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		return nil, nil, fmt.Errorf("mongo database name is required")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(database), nil
}

// EnsureIndexes creates the indexes moderation correctness depends on.
// The partial unique index below is what turns the concurrent
// duplicate-report race into a retriable conflict instead of a second
// queue record.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := db.Collection(CollectionFlagged).Indexes().CreateMany(idxCtx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "contentId", Value: 1},
				{Key: "contentType", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "source", Value: "user_report"},
					{Key: "reviewStatus", Value: "pending"},
				}),
		},
		{Keys: bson.D{{Key: "reviewStatus", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "authorId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create flagged content indexes: %w", err)
	}

	if _, err := db.Collection(CollectionUsers).Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}

	return nil
}
