package workers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sirdesai22/cf-tracker/internal/elastic"
	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/metrics"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"github.com/sirdesai22/cf-tracker/internal/services"
	"gorm.io/gorm"
)

// SyncWorker relays outbox events into the search index.
type SyncWorker struct {
	DB         *gorm.DB
	NewIndexer func() (esutil.BulkIndexer, error)

	PollInterval  time.Duration
	RetryInterval time.Duration
	BatchSize     int

	log zerolog.Logger
}

func NewSyncWorker(db *gorm.DB, client *es.Client, poll, retry time.Duration, batchSize int) *SyncWorker {
	return &SyncWorker{
		DB: db,
		NewIndexer: func() (esutil.BulkIndexer, error) {
			return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
				Client: client, Index: "", FlushBytes: 5 << 20, NumWorkers: 2,
			})
		},
		PollInterval:  poll,
		RetryInterval: retry,
		BatchSize:     batchSize,
		log:           logger.Named("outbox"),
	}
}

func (w *SyncWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("Outbox relay error")
			}
		}
	}
}

// ProcessOnce relays one batch and reports how many events it claimed.
func (w *SyncWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := FetchOutboxBatch(ctx, w.DB, w.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(batch.Events) == 0 {
		return 0, nil
	}

	bi, err := w.NewIndexer()
	if err != nil {
		return 0, fmt.Errorf("bulk indexer: %w", err)
	}

	for _, e := range batch.Events {
		if err := w.applyEvent(ctx, bi, e, w.toDLQ(e)); err != nil {
			// already marked processed, so the DLQ is the only way back
			metrics.FailedEvents.Inc()
			PutDLQ(w.DB, e, err.Error())
			continue
		}
	}

	if err := bi.Close(ctx); err != nil {
		return len(batch.Events), err
	}
	stats := bi.Stats()
	w.log.Debug().Uint64("flushed", stats.NumFlushed).Uint64("failed", stats.NumFailed).Msg("Bulk flushed")
	return len(batch.Events), nil
}

// settleFunc learns how a queued item ended at flush time; msg is empty on success.
type settleFunc func(ctx context.Context, msg string)

func (w *SyncWorker) toDLQ(e models.Outbox) settleFunc {
	return func(ctx context.Context, msg string) {
		if msg != "" {
			PutDLQ(w.DB, e, msg)
		}
	}
}

func (w *SyncWorker) applyEvent(ctx context.Context, bi esutil.BulkIndexer, e models.Outbox, settle settleFunc) error {
	switch e.EntityType {
	case services.EntityStudent:
		if e.Op == services.OpDelete {
			return w.add(ctx, bi, elastic.IdxStudents, e, "delete", nil, settle)
		}
		var st models.Student
		err := w.DB.WithContext(ctx).First(&st, "id = ?", e.EntityID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// removed after the event was written; the delete event follows
			return w.add(ctx, bi, elastic.IdxStudents, e, "delete", nil, settle)
		}
		if err != nil {
			return err
		}
		doc, err := elastic.BuildStudentDoc(st)
		if err != nil {
			return err
		}
		return w.add(ctx, bi, elastic.IdxStudents, e, "index", doc, settle)
	}
	return fmt.Errorf("unknown entity_type=%s", e.EntityType)
}

func (w *SyncWorker) add(ctx context.Context, bi esutil.BulkIndexer, index string, e models.Outbox, action string, body []byte, settle settleFunc) error {
	docID := e.EntityID.String()
	succeed := func(ctx context.Context) {
		metrics.ProcessedEvents.Inc()
		w.log.Debug().Str("index", index).Str("id", docID).Str("action", action).Msg("Synced")
		settle(ctx, "")
	}
	item := esutil.BulkIndexerItem{
		Action:     action,
		DocumentID: docID,
		Index:      index,
		OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
			succeed(ctx)
		},
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			// deleting a document that was never indexed leaves the index as wanted
			if err == nil && action == "delete" && res.Status == 404 {
				succeed(ctx)
				return
			}
			msg := ""
			switch {
			case err != nil:
				msg = err.Error()
			case res.Error.Reason != "":
				msg = fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
			default:
				msg = fmt.Sprintf("status=%d failed to index", res.Status)
			}
			metrics.FailedEvents.Inc()
			settle(ctx, msg)
		},
	}

	if len(body) > 0 {
		item.Body = bytes.NewReader(body)
	}
	return bi.Add(ctx, item)
}

func dlqEvent(d models.DLQ) (models.Outbox, error) {
	id, err := uuid.Parse(d.EntityID)
	if err != nil {
		return models.Outbox{}, fmt.Errorf("dlq id=%d: bad entity id: %w", d.ID, err)
	}
	return models.Outbox{
		ID:         d.OutboxID,
		EntityType: d.EntityType,
		EntityID:   id,
		Op:         d.Op,
		Payload:    d.Payload,
	}, nil
}
