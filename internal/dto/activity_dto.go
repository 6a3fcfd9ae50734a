package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-teaching-api/internal/models"
)

// ActivityListRequest defines filters for retrieving activity logs.
type ActivityListRequest struct {
	Page       int
	PageSize   int
	UserID     string
	ActionType string
	Entity     string
}

// ActivityResponse serializes activity log entries.
type ActivityResponse struct {
	ID          string                 `json:"id"`
	ActionType  string                 `json:"action_type"`
	Entity      string                 `json:"entity"`
	EntityID    string                 `json:"entity_id,omitempty"`
	Description string                 `json:"description"`
	UserID      string                 `json:"user_id"`
	UserRole    string                 `json:"user_role,omitempty"`
	Metadata    map[string]interface{} `json:"metadata"`
	Timestamp   time.Time              `json:"timestamp"`
}

// ActivityListResponse wraps paginated activity logs.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:          entry.ID,
		ActionType:  entry.ActionType,
		Entity:      entry.Entity,
		EntityID:    entry.EntityID,
		Description: entry.Description,
		UserID:      entry.UserID,
		UserRole:    entry.UserRole,
		Metadata:    metadataFromJSON(entry.Metadata),
		Timestamp:   entry.Timestamp,
	}
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		result[key] = value
	}
	return result
}
