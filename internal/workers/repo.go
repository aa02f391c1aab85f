package workers

import (
	"context"
	"sort"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/metrics"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/gorm"
)

type OutboxBatch struct{ Events []models.Outbox }

// FetchOutboxBatch claims up to limit unprocessed events, oldest first.
// Claimed events are marked processed; failures go to the DLQ instead of back to the outbox.
func FetchOutboxBatch(ctx context.Context, db *gorm.DB, limit int) (OutboxBatch, error) {
	var evts []models.Outbox
	if db.Dialector.Name() == "postgres" {
		// FOR UPDATE SKIP LOCKED to allow multiple relays
		tx := db.WithContext(ctx).Raw(`
			WITH cte AS (
			  SELECT * FROM outboxes
			  WHERE processed = false
			  ORDER BY id ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED
			)
			UPDATE outboxes SET processed = true
			FROM cte
			WHERE outboxes.id = cte.id
			RETURNING cte.*`, limit).Scan(&evts)
		sort.Slice(evts, func(i, j int) bool { return evts[i].ID < evts[j].ID })
		return OutboxBatch{Events: evts}, tx.Error
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("processed = ?", false).Order("id asc").Limit(limit).Find(&evts).Error; err != nil {
			return err
		}
		if len(evts) == 0 {
			return nil
		}
		ids := make([]int64, len(evts))
		for i, e := range evts {
			ids[i] = e.ID
		}
		return tx.Model(&models.Outbox{}).Where("id IN ?", ids).Update("processed", true).Error
	})
	return OutboxBatch{Events: evts}, err
}

// PutDLQ inserts a failed outbox event into the DLQ table.
func PutDLQ(db *gorm.DB, ob models.Outbox, msg string) {
	log := logger.Named("dlq")
	metrics.DLQEvents.Inc()
	dlq := models.DLQ{
		OutboxID:   ob.ID,
		EntityType: ob.EntityType,
		EntityID:   ob.EntityID.String(),
		Op:         ob.Op,
		ErrorMsg:   msg,
		Payload:    ob.Payload,
		CreatedAt:  time.Now(),
		Resolved:   false,
	}
	if err := db.Create(&dlq).Error; err != nil {
		log.Error().Err(err).Int64("outbox_id", ob.ID).Msg("Failed to insert into DLQ")
		return
	}
	log.Warn().Int64("outbox_id", ob.ID).Str("reason", msg).Msg("DLQ record created")
}
