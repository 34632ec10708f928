package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atakee72/community-platform/internal/domain/enums"
	"github.com/atakee72/community-platform/internal/domain/model"
)

// ContentSnapshot is the minimal view of a content item captured at
// flag/report time.
type ContentSnapshot struct {
	Title    string
	Body     string
	Tags     []string
	AuthorID string
}

// PostEdit carries the fields an edit rewrites on a post document.
type PostEdit struct {
	Title  string
	Body   string
	Tags   []string
	Status enums.ModerationStatus
	// ClearModeration drops stale rejection/warning fields when the edit
	// re-enters (or re-passes) screening.
	ClearModeration bool
	History         model.EditRecord

	StartDate *time.Time
	EndDate   *time.Time
	Location  string
	Category  string
}

// DecisionUpdate is how a review decision lands on the content document.
type DecisionUpdate struct {
	Status          enums.ModerationStatus
	RejectionReason string
	HasWarningLabel bool
	WarningText     string
}

// ContentRepo reads and writes the per-type content collections.
type ContentRepo struct {
	db *mongo.Database
}

func NewContentRepo(db *mongo.Database) *ContentRepo {
	return &ContentRepo{db: db}
}

func (r *ContentRepo) collection(ct enums.ContentType) (*mongo.Collection, error) {
	if r.db == nil {
		return nil, fmt.Errorf("mongo database is nil")
	}
	name := ct.CollectionName()
	if name == "" {
		return nil, fmt.Errorf("unknown content type %q", ct)
	}
	return r.db.Collection(name), nil
}

func (r *ContentRepo) InsertPost(ctx context.Context, ct enums.ContentType, post *model.Post) (primitive.ObjectID, error) {
	col, err := r.collection(ct)
	if err != nil {
		return primitive.NilObjectID, err
	}

	result, err := col.InsertOne(ctx, post)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert %s: %w", ct, err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

func (r *ContentRepo) GetPost(ctx context.Context, ct enums.ContentType, id string) (model.Post, error) {
	col, err := r.collection(ct)
	if err != nil {
		return model.Post{}, err
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Post{}, err
	}

	var post model.Post
	if err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Post{}, ErrContentNotFound
		}
		return model.Post{}, fmt.Errorf("find %s: %w", ct, err)
	}
	return post, nil
}

// ListVisible returns posts the viewer is allowed to see, newest first.
// AI-flagged pending and rejected posts only show up for their author;
// user-reported pending posts stay public.
func (r *ContentRepo) ListVisible(ctx context.Context, ct enums.ContentType, viewerID string, limit, offset int64) ([]model.Post, error) {
	col, err := r.collection(ct)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"moderationStatus": bson.M{"$exists": false}},
		bson.M{"moderationStatus": enums.ModerationStatusApproved},
		bson.M{"moderationStatus": enums.ModerationStatusPending, "isUserReported": true},
		bson.M{"author": viewerID},
	}}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ct, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	posts := make([]model.Post, 0, limit)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", ct, err)
	}
	return posts, nil
}

func (r *ContentRepo) ApplyEdit(ctx context.Context, ct enums.ContentType, id string, edit PostEdit) error {
	col, err := r.collection(ct)
	if err != nil {
		return err
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	set := bson.M{
		"title":            edit.Title,
		"body":             edit.Body,
		"tags":             edit.Tags,
		"moderationStatus": edit.Status,
		"isEdited":         true,
		"lastEditedAt":     now,
		"updatedAt":        now,
	}
	if edit.StartDate != nil {
		set["startDate"] = edit.StartDate
	}
	if edit.EndDate != nil {
		set["endDate"] = edit.EndDate
	}
	if edit.Location != "" {
		set["location"] = edit.Location
	}
	if edit.Category != "" {
		set["category"] = edit.Category
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"editHistory": edit.History},
	}
	if edit.ClearModeration {
		update["$unset"] = bson.M{
			"rejectionReason": "",
			"hasWarningLabel": "",
			"warningText":     "",
		}
	}

	result, err := col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("apply %s edit: %w", ct, err)
	}
	if result.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *ContentRepo) InsertComment(ctx context.Context, comment *model.Comment) (primitive.ObjectID, error) {
	col, err := r.collection(enums.ContentTypeComment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	result, err := col.InsertOne(ctx, comment)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert comment: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

func (r *ContentRepo) GetComment(ctx context.Context, id string) (model.Comment, error) {
	col, err := r.collection(enums.ContentTypeComment)
	if err != nil {
		return model.Comment{}, err
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Comment{}, err
	}

	var comment model.Comment
	if err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&comment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Comment{}, ErrContentNotFound
		}
		return model.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return comment, nil
}

// LinkComment adds the comment id to the parent's comments array with set
// semantics, so re-approval of an already-linked comment is a no-op.
func (r *ContentRepo) LinkComment(ctx context.Context, parent enums.ContentType, parentID string, commentID primitive.ObjectID) error {
	col, err := r.collection(parent)
	if err != nil {
		return err
	}
	oid, err := parseObjectID(parentID)
	if err != nil {
		return err
	}

	result, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$addToSet": bson.M{"comments": commentID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("link comment into %s: %w", parent, err)
	}
	if result.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *ContentRepo) UnlinkComment(ctx context.Context, parent enums.ContentType, parentID string, commentID primitive.ObjectID) error {
	col, err := r.collection(parent)
	if err != nil {
		return err
	}
	oid, err := parseObjectID(parentID)
	if err != nil {
		return err
	}

	if _, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$pull": bson.M{"comments": commentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}); err != nil {
		return fmt.Errorf("unlink comment from %s: %w", parent, err)
	}
	return nil
}

// ApplyDecision writes a review outcome onto the content document and
// clears the transient user-report marker.
func (r *ContentRepo) ApplyDecision(ctx context.Context, ct enums.ContentType, id string, decision DecisionUpdate) error {
	col, err := r.collection(ct)
	if err != nil {
		return err
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	set := bson.M{
		"moderationStatus": decision.Status,
		"updatedAt":        time.Now().UTC(),
	}
	if decision.Status == enums.ModerationStatusRejected && decision.RejectionReason != "" {
		set["rejectionReason"] = decision.RejectionReason
	}
	if decision.HasWarningLabel {
		set["hasWarningLabel"] = true
		set["warningText"] = decision.WarningText
	}

	result, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":   set,
		"$unset": bson.M{"isUserReported": ""},
	})
	if err != nil {
		return fmt.Errorf("apply decision to %s: %w", ct, err)
	}
	if result.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *ContentRepo) MarkUserReported(ctx context.Context, ct enums.ContentType, id string) error {
	col, err := r.collection(ct)
	if err != nil {
		return err
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"moderationStatus": enums.ModerationStatusPending,
			"isUserReported":   true,
			"updatedAt":        time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("mark %s user reported: %w", ct, err)
	}
	if result.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

// GetSnapshot captures the reviewable view of any content type.
func (r *ContentRepo) GetSnapshot(ctx context.Context, ct enums.ContentType, id string) (ContentSnapshot, error) {
	if ct == enums.ContentTypeComment {
		comment, err := r.GetComment(ctx, id)
		if err != nil {
			return ContentSnapshot{}, err
		}
		return ContentSnapshot{Body: comment.Body, AuthorID: comment.AuthorID}, nil
	}

	post, err := r.GetPost(ctx, ct, id)
	if err != nil {
		return ContentSnapshot{}, err
	}
	return ContentSnapshot{
		Title:    post.Title,
		Body:     post.Body,
		Tags:     post.Tags,
		AuthorID: post.AuthorID,
	}, nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("parse object id %q: %w", id, err)
	}
	return oid, nil
}
