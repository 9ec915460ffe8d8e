package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WalkRequestRepository stores walk requests in MongoDB.
type WalkRequestRepository struct {
	collection *mongo.Collection
}

// NewWalkRequestRepository creates a new instance of WalkRequestRepository.
func NewWalkRequestRepository(db *mongo.Database) *WalkRequestRepository {
	return &WalkRequestRepository{
		collection: db.Collection("walk_requests"),
	}
}

// EnsureIndexes creates the indexes the list views query on.
func (r *WalkRequestRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "companion_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create walk request indexes: %w", err)
	}
	return nil
}

// Create inserts a new walk request.
func (r *WalkRequestRepository) Create(ctx context.Context, req *models.WalkRequest) error {
	_, err := r.collection.InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert walk request")
		return fmt.Errorf("failed to insert walk request: %w", err)
	}

	logger.Log.WithField("request_id", req.ID).Info("Walk request inserted")
	return nil
}

// Get fetches a walk request by id.
func (r *WalkRequestRepository) Get(ctx context.Context, id string) (*models.WalkRequest, error) {
	var req models.WalkRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find walk request: %w", err)
	}
	return &req, nil
}

// Transition applies change in a single FindOneAndUpdate whose filter pins the
// expected status, so concurrent callers are ordered by the server and only
// one of them can match.
func (r *WalkRequestRepository) Transition(ctx context.Context, id string, change models.StatusChange) (*models.WalkRequest, error) {
	filter := bson.M{"_id": id, "status": change.From}
	update := bson.M{"$set": changeSet(change)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req models.WalkRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if err == nil {
		logger.Log.WithFields(logrus.Fields{
			"request_id": id,
			"from":       change.From,
			"to":         change.To,
		}).Info("Walk request transitioned")
		return &req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		logger.Log.WithError(err).WithField("request_id", id).Error("Failed to transition walk request")
		return nil, fmt.Errorf("failed to update walk request: %w", err)
	}

	// Nothing matched: either the id is unknown or the status moved on.
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, &StatusMismatchError{ID: id, Expected: change.From, Actual: current.Status}
}

func changeSet(change models.StatusChange) bson.M {
	set := bson.M{
		"status":     change.To,
		"updated_at": change.At,
	}
	switch change.To {
	case models.StatusAccepted:
		set["companion_id"] = change.CompanionID
		set["accepted_at"] = change.At
	case models.StatusCancelled:
		set["cancellation_reason"] = change.CancellationReason
		if change.CancellationDetails != "" {
			set["cancellation_details"] = change.CancellationDetails
		}
		set["cancelled_at"] = change.At
	}
	return set
}

func filterDoc(f models.WalkFilter) bson.M {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	switch {
	case f.RequesterID != "" && f.ExcludeRequesterID != "":
		filter["$and"] = []bson.M{
			{"requester_id": f.RequesterID},
			{"requester_id": bson.M{"$ne": f.ExcludeRequesterID}},
		}
	case f.RequesterID != "":
		filter["requester_id"] = f.RequesterID
	case f.ExcludeRequesterID != "":
		filter["requester_id"] = bson.M{"$ne": f.ExcludeRequesterID}
	}
	if f.CompanionID != "" {
		filter["companion_id"] = f.CompanionID
	}
	if f.ParticipantID != "" {
		filter["$or"] = []bson.M{
			{"requester_id": f.ParticipantID},
			{"companion_id": f.ParticipantID},
		}
	}
	return filter
}

// Find returns every walk request matching filter. Ordering is left to the caller.
func (r *WalkRequestRepository) Find(ctx context.Context, f models.WalkFilter) ([]models.WalkRequest, error) {
	filter := filterDoc(f)
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to query walk requests")
		return nil, fmt.Errorf("failed to find walk requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []models.WalkRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode walk requests: %w", err)
	}
	return requests, nil
}
