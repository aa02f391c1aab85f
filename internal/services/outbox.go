package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EntityStudent = "student"

	OpUpsert = "UPSERT"
	OpDelete = "DELETE"
)

// AddOutboxEvent inserts one event into the outbox. Pass the transaction that
// carries the entity write so the event commits with it.
func AddOutboxEvent(tx *gorm.DB, entityType string, entityID uuid.UUID, op string, payload any) error {
	var data []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal outbox payload: %w", err)
		}
		data = b
	}

	event := models.Outbox{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    datatypes.JSON(data),
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("create outbox event: %w", err)
	}
	return nil
}
