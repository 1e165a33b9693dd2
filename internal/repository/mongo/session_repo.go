// internal/repository/mongo/session_repo.go
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

const sessionCollectionName = "workout_sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new workout session repository.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new in-progress session. The partial unique index on
// (userId, templateId) turns a concurrent second start into ErrConflict.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	if session.UserID == primitive.NilObjectID || session.TemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires userId and templateId")
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.StartedAt = now
	session.UpdatedAt = now
	session.Status = domain.SessionInProgress

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetInProgressByUser retrieves the user's single in-progress session, if any.
func (r *mongoSessionRepository) GetInProgressByUser(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	filter := bson.M{"userId": userID, "status": domain.SessionInProgress}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetInProgressByTemplate retrieves the in-progress session for one template.
func (r *mongoSessionRepository) GetInProgressByTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	filter := bson.M{
		"userId":     userID,
		"templateId": templateID,
		"status":     domain.SessionInProgress,
	}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateProgress overwrites the completion arrays of an in-progress session.
// The status filter makes a write racing a finalization a clean miss instead
// of a resurrection.
func (r *mongoSessionRepository) UpdateProgress(ctx context.Context, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) error {
	filter := bson.M{"_id": sessionID, "status": domain.SessionInProgress}
	update := bson.M{
		"$set": bson.M{
			"exercises":     exercises,
			"exerciseOrder": exerciseOrder,
			"updatedAt":     time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Finalize moves an in-progress session to a terminal status, freezing its
// arrays. Only one caller can ever win this update for a given session.
func (r *mongoSessionRepository) Finalize(ctx context.Context, sessionID primitive.ObjectID, status domain.SessionStatus, completedAt *time.Time, exercises []domain.ExerciseCompletion, exerciseOrder []int) error {
	if !status.Terminal() {
		return errors.New("finalize requires a terminal status")
	}
	set := bson.M{
		"status":        status,
		"exercises":     exercises,
		"exerciseOrder": exerciseOrder,
		"updatedAt":     time.Now().UTC(),
	}
	if completedAt != nil {
		set["completedAt"] = *completedAt
	}
	filter := bson.M{"_id": sessionID, "status": domain.SessionInProgress}
	update := bson.M{"$set": set}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListCompletedTemplateIDs returns the distinct templates the user completed.
func (r *mongoSessionRepository) ListCompletedTemplateIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{"userId": userID, "status": domain.SessionCompleted}
	values, err := r.collection.Distinct(ctx, "templateId", filter)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// EnsureSessionIndexes creates necessary indexes. Call during startup.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one in-progress session per (user, template).
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "templateId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.SessionInProgress}),
		},
		{
			// Completed-template lookups and history screens.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
