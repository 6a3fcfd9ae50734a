package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-teaching-api/internal/models"
)

// TeacherRepository looks up teacher documents keyed by session user identifier.
type TeacherRepository interface {
	FindByID(ctx context.Context, id string) (models.Teacher, error)
	UpsertBatch(ctx context.Context, teachers []models.Teacher) (int64, error)
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository constructs the gorm-backed teacher repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) FindByID(ctx context.Context, id string) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).First(&teacher, "id = ?", id).Error; err != nil {
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *teacherRepository) UpsertBatch(ctx context.Context, teachers []models.Teacher) (int64, error) {
	if len(teachers) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email"}),
	}).Create(&teachers)
	return result.RowsAffected, result.Error
}
