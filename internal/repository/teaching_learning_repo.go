package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-teaching-api/internal/models"
)

// TeachingLearningRepository exposes persistence helpers for teaching and learning entries.
type TeachingLearningRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeachingLearning, error)
	GetByID(ctx context.Context, id string) (models.TeachingLearning, error)
	Create(ctx context.Context, entry *models.TeachingLearning) error
	Update(ctx context.Context, entry *models.TeachingLearning) error
	Delete(ctx context.Context, teacherID, id string) error
}

type teachingLearningRepository struct {
	db *gorm.DB
}

// NewTeachingLearningRepository constructs the gorm-backed repository.
func NewTeachingLearningRepository(db *gorm.DB) TeachingLearningRepository {
	return &teachingLearningRepository{db: db}
}

func (r *teachingLearningRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeachingLearning, error) {
	var entries []models.TeachingLearning
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *teachingLearningRepository) GetByID(ctx context.Context, id string) (models.TeachingLearning, error) {
	var entry models.TeachingLearning
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return models.TeachingLearning{}, err
	}
	return entry, nil
}

func (r *teachingLearningRepository) Create(ctx context.Context, entry *models.TeachingLearning) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *teachingLearningRepository) Update(ctx context.Context, entry *models.TeachingLearning) error {
	result := r.db.WithContext(ctx).
		Model(&models.TeachingLearning{}).
		Where("id = ? AND teacher_id = ?", entry.ID, entry.TeacherID).
		Updates(map[string]interface{}{
			"category":    entry.Category,
			"title":       entry.Title,
			"class_name":  entry.ClassName,
			"section":     entry.Section,
			"description": entry.Description,
			"url":         entry.URL,
			"updated_at":  entry.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *teachingLearningRepository) Delete(ctx context.Context, teacherID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND teacher_id = ?", id, teacherID).
		Delete(&models.TeachingLearning{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
