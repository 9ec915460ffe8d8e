package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository is a read-only directory over the users collection.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// Lookup resolves a user id to its display data. Soft-deleted users are
// reported as absent.
func (r *UserRepository) Lookup(ctx context.Context, userID string) (models.PublicUser, bool, error) {
	// Accounts created by the auth service use ObjectIDs; accept both forms.
	ids := bson.A{userID}
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		ids = append(ids, oid)
	}
	filter := bson.M{
		"_id":        bson.M{"$in": ids},
		"is_deleted": bson.M{"$ne": true},
	}

	var raw bson.M
	err := r.collection.FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PublicUser{}, false, nil
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID": userID,
			"error":  err,
		}).Warn("Failed to find user by ID")
		return models.PublicUser{}, false, fmt.Errorf("failed to find user by id: %w", err)
	}

	user := models.User{ID: userID}
	user.FullName, _ = raw["full_name"].(string)
	user.Username, _ = raw["username"].(string)
	user.Email, _ = raw["email"].(string)
	user.ContactNumber, _ = raw["contact_number"].(string)
	return user.Public(), true, nil
}
