package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity action types recorded for mutations.
const (
	ActivityActionAdd    = "Add"
	ActivityActionEdit   = "Edit"
	ActivityActionDelete = "Delete"
)

// ActivityLog is an append-only audit record of a mutation.
type ActivityLog struct {
	ID          string            `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	ActionType  string            `gorm:"size:16;not null;index" bson:"actionType" json:"action_type"`
	Entity      string            `gorm:"size:64;not null;index" bson:"entity" json:"entity"`
	EntityID    string            `gorm:"size:64" bson:"entityId,omitempty" json:"entity_id,omitempty"`
	Description string            `gorm:"type:text" bson:"description" json:"description"`
	UserID      string            `gorm:"size:64;not null;index" bson:"userId" json:"user_id"`
	UserRole    string            `gorm:"size:32" bson:"userRole,omitempty" json:"user_role,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:json" bson:"metadata,omitempty" json:"metadata"`
	Timestamp   time.Time         `gorm:"column:occurred_at;not null;index" bson:"timestamp" json:"timestamp"`
}

// BeforeCreate assigns the identifier and timestamp when absent.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
