package dto

import (
	"time"

	"github.com/noah-isme/gema-teaching-api/internal/models"
)

// TeachingLearningRequest is the create/edit form payload. A non-empty ID switches to edit mode.
type TeachingLearningRequest struct {
	ID          string `json:"id"`
	Category    string `json:"category" validate:"required,tl_category"`
	Title       string `json:"title" validate:"required,max=255"`
	ClassName   string `json:"class_name" validate:"required,max=64"`
	Section     string `json:"section" validate:"required,max=32"`
	Description string `json:"description" validate:"required,max=10000"`
	URL         string `json:"url" validate:"required,max=2048"`
}

// TeachingLearningResponse serializes a single entry.
type TeachingLearningResponse struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	ClassName   string    `json:"class_name"`
	Section     string    `json:"section"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	TeacherID   string    `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeachingLearningGroup is one category bucket.
type TeachingLearningGroup struct {
	Category string                     `json:"category"`
	Count    int                        `json:"count"`
	Items    []TeachingLearningResponse `json:"items"`
}

// TeachingLearningGroupsResponse holds the four category buckets for a teacher.
type TeachingLearningGroupsResponse struct {
	TeacherID string                  `json:"teacher_id"`
	Resolved  bool                    `json:"resolved"`
	Total     int                     `json:"total"`
	Groups    []TeachingLearningGroup `json:"groups"`
}

// Group returns the bucket for a category, or an empty bucket when unknown.
func (r TeachingLearningGroupsResponse) Group(category string) TeachingLearningGroup {
	for _, group := range r.Groups {
		if group.Category == category {
			return group
		}
	}
	return TeachingLearningGroup{Category: category, Items: []TeachingLearningResponse{}}
}

// EmptyTeachingLearningGroups returns the initial all-empty bucketed state.
func EmptyTeachingLearningGroups(teacherID string) TeachingLearningGroupsResponse {
	categories := models.TeachingLearningCategories()
	groups := make([]TeachingLearningGroup, 0, len(categories))
	for _, category := range categories {
		groups = append(groups, TeachingLearningGroup{Category: category, Items: []TeachingLearningResponse{}})
	}
	return TeachingLearningGroupsResponse{TeacherID: teacherID, Groups: groups}
}

// TeachingLearningMutationResponse reports the outcome of add, edit and delete.
type TeachingLearningMutationResponse struct {
	Action        string                   `json:"action"`
	Entry         TeachingLearningResponse `json:"entry"`
	AuditRecorded bool                     `json:"audit_recorded"`
}

// NewTeachingLearningResponse converts a model into its DTO.
func NewTeachingLearningResponse(entry models.TeachingLearning) TeachingLearningResponse {
	return TeachingLearningResponse{
		ID:          entry.ID,
		Category:    entry.Category,
		Title:       entry.Title,
		ClassName:   entry.ClassName,
		Section:     entry.Section,
		Description: entry.Description,
		URL:         entry.URL,
		TeacherID:   entry.TeacherID,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}
