// internal/repository/mongo/override_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const overrideCollectionName = "schedule_overrides"

// mongoOverrideRepository implements repository.OverrideRepository
type mongoOverrideRepository struct {
	collection *mongo.Collection
}

// NewMongoOverrideRepository creates a new schedule override repository.
func NewMongoOverrideRepository(db *mongo.Database) repository.OverrideRepository {
	return &mongoOverrideRepository{
		collection: db.Collection(overrideCollectionName),
	}
}

// GetByUserID retrieves the athlete's override document.
func (r *mongoOverrideRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduleOverride, error) {
	var override domain.ScheduleOverride
	filter := bson.M{"userId": userID}
	err := r.collection.FindOne(ctx, filter).Decode(&override)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &override, nil
}

// swapKey builds the dotted path of one permutation entry.
func swapKey(phase domain.Phase, slotKey string) string {
	return "slotSwaps." + string(phase) + "." + slotKey
}

// ApplySwap writes both permutation entries of a swap (and any normalized
// removals) in one update. The override document is created lazily here.
// The service guarantees set and remove never name the same slot key.
func (r *mongoOverrideRepository) ApplySwap(ctx context.Context, userID primitive.ObjectID, phase domain.Phase, set map[string]primitive.ObjectID, remove []string, clearFocus bool) error {
	now := time.Now().UTC()
	setDoc := bson.M{"updatedAt": now}
	for key, templateID := range set {
		setDoc[swapKey(phase, key)] = templateID
	}
	unsetDoc := bson.M{}
	for _, key := range remove {
		unsetDoc[swapKey(phase, key)] = ""
	}
	if clearFocus {
		unsetDoc["todayFocusTemplateId"] = ""
	}

	update := bson.M{
		"$set":         setDoc,
		"$setOnInsert": bson.M{"userId": userID, "createdAt": now},
	}
	if len(unsetDoc) > 0 {
		update["$unset"] = unsetDoc
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update, opts)
	return err
}

// SetFocus pins the today focus, with any accompanying swap entries folded
// into the same write so focus and swap land together or not at all.
func (r *mongoOverrideRepository) SetFocus(ctx context.Context, userID primitive.ObjectID, templateID primitive.ObjectID, phase domain.Phase, set map[string]primitive.ObjectID, remove []string) error {
	now := time.Now().UTC()
	setDoc := bson.M{
		"todayFocusTemplateId": templateID,
		"updatedAt":            now,
	}
	for key, id := range set {
		setDoc[swapKey(phase, key)] = id
	}
	unsetDoc := bson.M{}
	for _, key := range remove {
		unsetDoc[swapKey(phase, key)] = ""
	}

	update := bson.M{
		"$set":         setDoc,
		"$setOnInsert": bson.M{"userId": userID, "createdAt": now},
	}
	if len(unsetDoc) > 0 {
		update["$unset"] = unsetDoc
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update, opts)
	return err
}

// ClearFocus removes the today focus. Clearing an absent focus is a no-op.
func (r *mongoOverrideRepository) ClearFocus(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
		"$unset": bson.M{"todayFocusTemplateId": ""},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update)
	return err
}

// ResetPhase drops one phase's whole permutation, leaving the focus alone.
func (r *mongoOverrideRepository) ResetPhase(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) error {
	update := bson.M{
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
		"$unset": bson.M{"slotSwaps." + string(phase): ""},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, update)
	return err
}

// EnsureOverrideIndexes creates necessary indexes. Call during startup.
func EnsureOverrideIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One override document per athlete.
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
