package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/gorm"
)

var ErrDLQNotFound = errors.New("dlq entry not found")

const dlqRetryBatch = 50

func (w *SyncWorker) RetryDLQ(ctx context.Context) {
	ticker := time.NewTicker(w.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RetryOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("DLQ retry error")
			}
		}
	}
}

// RetryOnce re-applies unresolved DLQ entries and returns how many were resolved.
// Entries are settled from the flush outcome: accepted ones are resolved, rejected
// ones stay unresolved with the latest error.
func (w *SyncWorker) RetryOnce(ctx context.Context) (int, error) {
	var dlqs []models.DLQ
	if err := w.DB.WithContext(ctx).Where("resolved = ?", false).Order("id asc").Limit(dlqRetryBatch).Find(&dlqs).Error; err != nil {
		return 0, fmt.Errorf("dlq fetch: %w", err)
	}
	if len(dlqs) == 0 {
		return 0, nil
	}

	bi, err := w.NewIndexer()
	if err != nil {
		return 0, fmt.Errorf("bulk indexer: %w", err)
	}

	var resolved atomic.Int64
	for _, d := range dlqs {
		w.log.Info().Int64("dlq_id", d.ID).Str("entity", d.EntityType).Str("op", d.Op).Msg("Retrying DLQ entry")
		ob, err := dlqEvent(d)
		if err != nil {
			w.log.Error().Err(err).Msg("DLQ entry cannot be retried")
			continue
		}
		settle := func(ctx context.Context, msg string) {
			if err := w.settleDLQ(ctx, d.ID, msg); err != nil {
				w.log.Error().Err(err).Int64("dlq_id", d.ID).Msg("Failed to settle DLQ entry")
				return
			}
			if msg == "" {
				resolved.Add(1)
			}
		}
		if err := w.applyEvent(ctx, bi, ob, settle); err != nil {
			w.log.Warn().Err(err).Int64("dlq_id", d.ID).Msg("DLQ retry failed")
			if err := w.settleDLQ(ctx, d.ID, err.Error()); err != nil {
				w.log.Error().Err(err).Int64("dlq_id", d.ID).Msg("Failed to settle DLQ entry")
			}
		}
	}
	err = bi.Close(ctx)
	return int(resolved.Load()), err
}

// Retry re-applies a single DLQ entry and flushes it before returning.
func (w *SyncWorker) Retry(ctx context.Context, id int64) error {
	var d models.DLQ
	err := w.DB.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %d", ErrDLQNotFound, id)
	}
	if err != nil {
		return err
	}
	ob, err := dlqEvent(d)
	if err != nil {
		return err
	}

	bi, err := w.NewIndexer()
	if err != nil {
		return fmt.Errorf("bulk indexer: %w", err)
	}
	var (
		settled bool
		failure string
	)
	settle := func(_ context.Context, msg string) {
		settled, failure = true, msg
	}
	if err := w.applyEvent(ctx, bi, ob, settle); err != nil {
		_ = bi.Close(ctx)
		return err
	}
	if err := bi.Close(ctx); err != nil {
		return err
	}
	if !settled {
		return fmt.Errorf("retry of dlq id=%d was never flushed", id)
	}
	if err := w.settleDLQ(ctx, id, failure); err != nil {
		return err
	}
	if failure != "" {
		return fmt.Errorf("retry of dlq id=%d was rejected by the index: %s", id, failure)
	}
	return nil
}

// settleDLQ resolves an entry when msg is empty, otherwise records msg as its latest error.
func (w *SyncWorker) settleDLQ(ctx context.Context, id int64, msg string) error {
	now := time.Now()
	fields := map[string]any{"retried_at": &now}
	if msg == "" {
		fields["resolved"] = true
	} else {
		fields["error_msg"] = msg
	}
	return w.DB.WithContext(ctx).Model(&models.DLQ{}).Where("id = ?", id).Updates(fields).Error
}
