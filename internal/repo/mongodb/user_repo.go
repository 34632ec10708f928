package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atakee72/community-platform/internal/domain/model"
)

type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	if db == nil {
		return &UserRepo{}
	}
	return &UserRepo{col: db.Collection(CollectionUsers)}
}

func (r *UserRepo) Insert(ctx context.Context, user *model.User) (primitive.ObjectID, error) {
	if r.col == nil {
		return primitive.NilObjectID, fmt.Errorf("users collection is nil")
	}

	result, err := r.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrEmailTaken
		}
		return primitive.NilObjectID, fmt.Errorf("insert user: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	if r.col == nil {
		return model.User{}, fmt.Errorf("users collection is nil")
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if r.col == nil {
		return model.User{}, fmt.Errorf("users collection is nil")
	}

	var user model.User
	if err := r.col.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// RecordStrike appends one violation and returns the post-increment strike
// count. The single findAndModify keeps concurrent rejections of different
// content by the same author from losing updates.
func (r *UserRepo) RecordStrike(ctx context.Context, userID string, entry model.StrikeRecord) (int, error) {
	if r.col == nil {
		return 0, fmt.Errorf("users collection is nil")
	}
	oid, err := parseObjectID(userID)
	if err != nil {
		return 0, err
	}

	update := bson.M{
		"$inc":  bson.M{"moderationStrikes": 1},
		"$push": bson.M{"strikeHistory": entry},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("record strike: %w", err)
	}

	return updated.ModerationStrikes, nil
}

// Ban flips the one-way banned flag. Re-banning an already banned user is
// a no-op, keeping the original bannedAt.
func (r *UserRepo) Ban(ctx context.Context, userID, reason string, at time.Time) error {
	if r.col == nil {
		return fmt.Errorf("users collection is nil")
	}
	oid, err := parseObjectID(userID)
	if err != nil {
		return err
	}

	if _, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "isBanned": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"isBanned":     true,
			"bannedAt":     at,
			"bannedReason": reason,
			"updatedAt":    time.Now().UTC(),
		}},
	); err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	return nil
}
