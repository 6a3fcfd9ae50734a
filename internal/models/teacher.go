package models

import "time"

// Teacher is keyed by the session user identifier; only its existence matters to the panel.
type Teacher struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"id"`
	Name      string    `gorm:"size:255" bson:"name" json:"name"`
	Email     string    `gorm:"size:255" bson:"email" json:"email"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}
