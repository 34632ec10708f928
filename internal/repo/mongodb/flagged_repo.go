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

// ListFilter narrows the admin queue listing.
type ListFilter struct {
	// ReviewStatus accepts the stored statuses plus the derived value
	// "reviewed" (approved or rejected).
	ReviewStatus string
	ContentType  enums.ContentType
	Decision     enums.Decision
	Source       enums.FlagSource
	AuthorID     string
	SortBy       string // createdAt | maxScore
	SortAsc      bool
	Limit        int64
	Offset       int64
}

// QueueCounts backs the admin dashboard header.
type QueueCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Urgent   int64 `json:"urgent"`
}

// ReviewUpdate is the terminal write applied to a flagged record.
type ReviewUpdate struct {
	Status          enums.ReviewStatus
	ReviewedBy      string
	ReviewedAt      time.Time
	Notes           string
	RejectionReason string
	HasWarningLabel bool
	WarningText     string
}

type FlaggedRepo struct {
	col *mongo.Collection
}

func NewFlaggedRepo(db *mongo.Database) *FlaggedRepo {
	if db == nil {
		return &FlaggedRepo{}
	}
	return &FlaggedRepo{col: db.Collection(CollectionFlagged)}
}

func (r *FlaggedRepo) Insert(ctx context.Context, record *model.FlaggedContent) (primitive.ObjectID, error) {
	if r.col == nil {
		return primitive.NilObjectID, fmt.Errorf("flagged collection is nil")
	}

	result, err := r.col.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateReport
		}
		return primitive.NilObjectID, fmt.Errorf("insert flagged record: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

func (r *FlaggedRepo) GetByID(ctx context.Context, id string) (model.FlaggedContent, error) {
	if r.col == nil {
		return model.FlaggedContent{}, fmt.Errorf("flagged collection is nil")
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return model.FlaggedContent{}, err
	}

	var record model.FlaggedContent
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.FlaggedContent{}, ErrFlaggedNotFound
		}
		return model.FlaggedContent{}, fmt.Errorf("find flagged record: %w", err)
	}
	return record, nil
}

// FindPendingUserReport returns the open user-report record for one
// content item, if any. The partial unique index guarantees at most one.
func (r *FlaggedRepo) FindPendingUserReport(ctx context.Context, contentID string, ct enums.ContentType) (model.FlaggedContent, error) {
	if r.col == nil {
		return model.FlaggedContent{}, fmt.Errorf("flagged collection is nil")
	}

	filter := bson.M{
		"contentId":    contentID,
		"contentType":  ct,
		"source":       enums.FlagSourceUserReport,
		"reviewStatus": enums.ReviewStatusPending,
	}

	var record model.FlaggedContent
	if err := r.col.FindOne(ctx, filter).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.FlaggedContent{}, ErrFlaggedNotFound
		}
		return model.FlaggedContent{}, fmt.Errorf("find pending user report: %w", err)
	}
	return record, nil
}

// AddReporter atomically counts one more distinct reporter on an open
// record and returns the new total.
func (r *FlaggedRepo) AddReporter(ctx context.Context, id primitive.ObjectID, reporterID string) (int, error) {
	if r.col == nil {
		return 0, fmt.Errorf("flagged collection is nil")
	}

	update := bson.M{
		"$inc":      bson.M{"reportCount": 1},
		"$addToSet": bson.M{"reporterUserIds": reporterID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.FlaggedContent
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrFlaggedNotFound
		}
		return 0, fmt.Errorf("add reporter: %w", err)
	}
	return updated.ReportCount, nil
}

func (r *FlaggedRepo) MarkReviewed(ctx context.Context, id string, review ReviewUpdate) error {
	if r.col == nil {
		return fmt.Errorf("flagged collection is nil")
	}
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	set := bson.M{
		"reviewStatus":    review.Status,
		"reviewedBy":      review.ReviewedBy,
		"reviewedAt":      review.ReviewedAt,
		"hasWarningLabel": review.HasWarningLabel,
		"updatedAt":       time.Now().UTC(),
	}
	if review.Notes != "" {
		set["reviewNotes"] = review.Notes
	}
	if review.RejectionReason != "" {
		set["rejectionReason"] = review.RejectionReason
	}
	if review.HasWarningLabel {
		set["warningText"] = review.WarningText
	}

	result, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mark flagged record reviewed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrFlaggedNotFound
	}
	return nil
}

func (r *FlaggedRepo) List(ctx context.Context, filter ListFilter) ([]model.FlaggedContent, int64, error) {
	if r.col == nil {
		return nil, 0, fmt.Errorf("flagged collection is nil")
	}

	query := bson.M{}
	switch filter.ReviewStatus {
	case "":
	case enums.ReviewStatusFilterReviewed:
		query["reviewStatus"] = bson.M{"$in": bson.A{enums.ReviewStatusApproved, enums.ReviewStatusRejected}}
	default:
		query["reviewStatus"] = filter.ReviewStatus
	}
	if filter.ContentType != "" {
		query["contentType"] = filter.ContentType
	}
	if filter.Decision != "" {
		query["decision"] = filter.Decision
	}
	if filter.Source != "" {
		query["source"] = filter.Source
	}
	if filter.AuthorID != "" {
		query["authorId"] = filter.AuthorID
	}

	sortBy := filter.SortBy
	if sortBy != "maxScore" {
		sortBy = "createdAt"
	}
	order := -1
	if filter.SortAsc {
		order = 1
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: order}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list flagged records: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	items := make([]model.FlaggedContent, 0, limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode flagged records: %w", err)
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count flagged records: %w", err)
	}

	return items, total, nil
}

func (r *FlaggedRepo) Counts(ctx context.Context) (QueueCounts, error) {
	if r.col == nil {
		return QueueCounts{}, fmt.Errorf("flagged collection is nil")
	}

	var counts QueueCounts
	var err error

	if counts.Pending, err = r.col.CountDocuments(ctx, bson.M{"reviewStatus": enums.ReviewStatusPending}); err != nil {
		return QueueCounts{}, fmt.Errorf("count pending: %w", err)
	}
	if counts.Approved, err = r.col.CountDocuments(ctx, bson.M{"reviewStatus": enums.ReviewStatusApproved}); err != nil {
		return QueueCounts{}, fmt.Errorf("count approved: %w", err)
	}
	if counts.Rejected, err = r.col.CountDocuments(ctx, bson.M{"reviewStatus": enums.ReviewStatusRejected}); err != nil {
		return QueueCounts{}, fmt.Errorf("count rejected: %w", err)
	}
	if counts.Urgent, err = r.col.CountDocuments(ctx, bson.M{
		"reviewStatus": enums.ReviewStatusPending,
		"decision":     enums.DecisionUrgentReview,
	}); err != nil {
		return QueueCounts{}, fmt.Errorf("count urgent: %w", err)
	}

	return counts, nil
}
