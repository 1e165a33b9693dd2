// internal/repository/mongo/program_repo.go
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

const programCollectionName = "user_programs"

// mongoProgramRepository implements repository.ProgramRepository
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new program state repository.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts the athlete's program state. The unique index on userId
// turns a second intake into ErrConflict.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.ProgramState) (primitive.ObjectID, error) {
	if program.UserID == primitive.NilObjectID || program.SportCategoryID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("program requires userId and sportCategoryId")
	}
	program.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, program)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted program ID")
	}
	return insertedID, nil
}

// GetByUserID retrieves the athlete's program state.
func (r *mongoProgramRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.ProgramState, error) {
	var program domain.ProgramState
	filter := bson.M{"userId": userID}
	err := r.collection.FindOne(ctx, filter).Decode(&program)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// UpdatePosition moves the day counters, storing a pending reassessment
// ticket in the same write when one was minted.
func (r *mongoProgramRepository) UpdatePosition(ctx context.Context, userID primitive.ObjectID, week, day int, ticket *domain.ReassessmentTicket) error {
	set := bson.M{
		"week":      week,
		"day":       day,
		"updatedAt": time.Now().UTC(),
	}
	if ticket != nil {
		set["pendingReassessment"] = ticket
	}
	filter := bson.M{"userId": userID}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ApplyReassessment consumes the pending ticket in one write: filter on the
// token so a ticket can only ever be spent once.
func (r *mongoProgramRepository) ApplyReassessment(ctx context.Context, userID primitive.ObjectID, token string, next domain.Phase, unlockedAt time.Time) error {
	set := bson.M{
		"phase":     next,
		"week":      1,
		"day":       1,
		"updatedAt": time.Now().UTC(),
	}
	switch next {
	case domain.PhaseSPP:
		set["sppUnlockedAt"] = unlockedAt
	case domain.PhaseSSP:
		set["sspUnlockedAt"] = unlockedAt
	default:
		return errors.New("no phase follows " + string(next))
	}

	filter := bson.M{
		"userId":                    userID,
		"pendingReassessment.token": token,
	}
	update := bson.M{
		"$set":   set,
		"$unset": bson.M{"pendingReassessment": ""},
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

// EnsureProgramIndexes creates necessary indexes. Call during startup.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One program per athlete.
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
