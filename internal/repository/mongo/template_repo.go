// internal/repository/mongo/template_repo.go
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

const templateCollectionName = "workout_templates"

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new template repository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// GetByID retrieves a single template and normalizes legacy section data.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	var template domain.WorkoutTemplate
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	template.NormalizeSections()
	return &template, nil
}

// GetBySlot retrieves the canonical template at one grid coordinate.
func (r *mongoTemplateRepository) GetBySlot(ctx context.Context, categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel, week, day int) (*domain.WorkoutTemplate, error) {
	var template domain.WorkoutTemplate
	filter := bson.M{
		"sportCategoryId": categoryID,
		"phase":           phase,
		"skillLevel":      skill,
		"week":            week,
		"day":             day,
	}
	err := r.collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	template.NormalizeSections()
	return &template, nil
}

// ListPhase retrieves one phase column of the grid ordered by (week, day).
func (r *mongoTemplateRepository) ListPhase(ctx context.Context, categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel) ([]domain.WorkoutTemplate, error) {
	var templates []domain.WorkoutTemplate
	filter := bson.M{
		"sportCategoryId": categoryID,
		"phase":           phase,
		"skillLevel":      skill,
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "week", Value: 1}, {Key: "day", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].NormalizeSections()
	}
	return templates, nil
}

// Upsert writes a template keyed by its grid coordinate. Used by the seeder.
func (r *mongoTemplateRepository) Upsert(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	if template.SportCategoryID == primitive.NilObjectID || !template.Phase.Valid() || !template.SkillLevel.Valid() {
		return primitive.NilObjectID, errors.New("template requires sportCategoryId, phase, and skillLevel")
	}
	now := time.Now().UTC()
	filter := bson.M{
		"sportCategoryId": template.SportCategoryID,
		"phase":           template.Phase,
		"skillLevel":      template.SkillLevel,
		"week":            template.Week,
		"day":             template.Day,
	}
	update := bson.M{
		"$set": bson.M{
			"name":      template.Name,
			"restDay":   template.RestDay,
			"exercises": template.Exercises,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"sportCategoryId": template.SportCategoryID,
			"phase":           template.Phase,
			"skillLevel":      template.SkillLevel,
			"week":            template.Week,
			"day":             template.Day,
			"createdAt":       now,
		},
	}
	opts := options.Update().SetUpsert(true)
	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if result.UpsertedID != nil {
		if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
			return id, nil
		}
	}
	// Updated an existing document; fetch its id through the same filter.
	var existing struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := r.collection.FindOne(ctx, filter).Decode(&existing); err != nil {
		return primitive.NilObjectID, err
	}
	return existing.ID, nil
}

// EnsureTemplateIndexes creates necessary indexes. Call during startup.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One template per grid coordinate.
			Keys: bson.D{
				{Key: "sportCategoryId", Value: 1},
				{Key: "phase", Value: 1},
				{Key: "skillLevel", Value: 1},
				{Key: "week", Value: 1},
				{Key: "day", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
