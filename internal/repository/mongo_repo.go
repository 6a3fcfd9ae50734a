package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/gema-teaching-api/internal/models"
)

// Collection names in the hosted document store.
const (
	TeachingLearningCollection = "TeachingLearning"
	TeachersCollection         = "teachers"
	ActivityLogsCollection     = "activityLogs"
)

// EnsureMongoIndexes creates the indexes the equality queries rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string]mongo.IndexModel{
		TeachingLearningCollection: {Keys: bson.D{{Key: "teacherId", Value: 1}, {Key: "createdAt", Value: -1}}},
		ActivityLogsCollection:     {Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	for collection, index := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateOne(ctx, index); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", collection, err)
		}
	}
	return nil
}

func normalizeMongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrRecordNotFound
	}
	return err
}

type mongoTeachingLearningRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoTeachingLearningRepository constructs the document-store backed entry repository.
func NewMongoTeachingLearningRepository(db *mongo.Database) TeachingLearningRepository {
	return &mongoTeachingLearningRepository{
		collection: db.Collection(TeachingLearningCollection),
		now:        time.Now,
	}
}

func (r *mongoTeachingLearningRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeachingLearning, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"teacherId": teacherID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]models.TeachingLearning, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mongoTeachingLearningRepository) GetByID(ctx context.Context, id string) (models.TeachingLearning, error) {
	var entry models.TeachingLearning
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry); err != nil {
		return models.TeachingLearning{}, normalizeMongoError(err)
	}
	return entry, nil
}

func (r *mongoTeachingLearningRepository) Create(ctx context.Context, entry *models.TeachingLearning) error {
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *mongoTeachingLearningRepository) Update(ctx context.Context, entry *models.TeachingLearning) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = r.now().UTC()
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": entry.ID, "teacherId": entry.TeacherID},
		bson.M{"$set": bson.M{
			"category":    entry.Category,
			"title":       entry.Title,
			"className":   entry.ClassName,
			"section":     entry.Section,
			"description": entry.Description,
			"url":         entry.URL,
			"updatedAt":   entry.UpdatedAt,
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *mongoTeachingLearningRepository) Delete(ctx context.Context, teacherID, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "teacherId": teacherID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

type mongoTeacherRepository struct {
	collection *mongo.Collection
}

// NewMongoTeacherRepository constructs the document-store backed teacher lookup.
func NewMongoTeacherRepository(db *mongo.Database) TeacherRepository {
	return &mongoTeacherRepository{collection: db.Collection(TeachersCollection)}
}

func (r *mongoTeacherRepository) FindByID(ctx context.Context, id string) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&teacher); err != nil {
		return models.Teacher{}, normalizeMongoError(err)
	}
	return teacher, nil
}

func (r *mongoTeacherRepository) UpsertBatch(ctx context.Context, teachers []models.Teacher) (int64, error) {
	if len(teachers) == 0 {
		return 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(teachers))
	for _, teacher := range teachers {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": teacher.ID}).
			SetUpdate(bson.M{
				"$set":         bson.M{"name": teacher.Name, "email": teacher.Email},
				"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
			}).
			SetUpsert(true))
	}
	result, err := r.collection.BulkWrite(ctx, writes)
	if err != nil {
		return 0, err
	}
	return result.UpsertedCount + result.ModifiedCount, nil
}

type mongoActivityLogRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityLogRepository constructs the document-store backed audit trail.
func NewMongoActivityLogRepository(db *mongo.Database) ActivityLogRepository {
	return &mongoActivityLogRepository{collection: db.Collection(ActivityLogsCollection)}
}

func (r *mongoActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *mongoActivityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := activityLogMongoFilter(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.PageSize > 0 {
		opts.SetSkip(int64(pageOffset(filter.Page, filter.PageSize))).SetLimit(int64(filter.PageSize))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	entries := make([]models.ActivityLog, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func activityLogMongoFilter(filter ActivityLogFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.ActionType != "" {
		query["actionType"] = filter.ActionType
	}
	if filter.Entity != "" {
		query["entity"] = filter.Entity
	}
	return query
}
