package models

import (
	"time"

	"github.com/google/uuid"
)

type DLQ struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	OutboxID   int64     `gorm:"index"`
	EntityType string
	EntityID   string
	Op         string
	ErrorMsg   string
	Payload    []byte
	CreatedAt  time.Time
	RetriedAt  *time.Time
	Resolved   bool `gorm:"default:false"`
}

// SyncFailure records one failed student sync so batch failures stay diagnosable.
type SyncFailure struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;index;not null" json:"studentId"`
	Handle    string    `json:"handle"`
	Trigger   string    `json:"trigger"` // handle_change | batch | manual
	ErrorMsg  string    `json:"error"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
