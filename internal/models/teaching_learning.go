package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeachingLearningEntity names the entity recorded in activity logs for teaching and learning entries.
const TeachingLearningEntity = "TeachingLearning"

// Teaching and learning categories. Every entry belongs to exactly one of them.
const (
	CategoryCourseDesign           = "Course Design"
	CategoryPedagogicalInnovations = "Pedagogical Innovations"
	CategoryStudentFeedback        = "Student Feedback"
	CategoryAcademicResults        = "Academic Results"
)

// TeachingLearningCategories lists the fixed categories in display order.
func TeachingLearningCategories() []string {
	return []string{
		CategoryCourseDesign,
		CategoryPedagogicalInnovations,
		CategoryStudentFeedback,
		CategoryAcademicResults,
	}
}

// IsTeachingLearningCategory reports whether the label is one of the fixed categories.
func IsTeachingLearningCategory(category string) bool {
	for _, known := range TeachingLearningCategories() {
		if category == known {
			return true
		}
	}
	return false
}

// TeachingLearning is a teacher's record scoped to a class and section.
type TeachingLearning struct {
	ID          string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Category    string    `gorm:"size:64;not null;index" bson:"category" json:"category"`
	Title       string    `gorm:"size:255;not null" bson:"title" json:"title"`
	ClassName   string    `gorm:"size:64" bson:"className" json:"class_name"`
	Section     string    `gorm:"size:32" bson:"section" json:"section"`
	Description string    `gorm:"type:text" bson:"description" json:"description"`
	URL         string    `gorm:"size:2048" bson:"url" json:"url"`
	TeacherID   string    `gorm:"size:64;not null;index" bson:"teacherId" json:"teacher_id"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updated_at"`
}

// TableName pins the relational table name.
func (TeachingLearning) TableName() string {
	return "teaching_learning"
}

// BeforeCreate assigns the store identifier when absent.
func (t *TeachingLearning) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
