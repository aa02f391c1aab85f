package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirdesai22/cf-tracker/internal/db"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"github.com/sirdesai22/cf-tracker/internal/stats"
)

// QueryService answers read-only questions over the stored history.
type QueryService struct {
	store *db.Store
	opts  stats.Options
	now   func() time.Time
}

func NewQueryService(store *db.Store, opts stats.Options) *QueryService {
	return &QueryService{store: store, opts: opts, now: func() time.Time { return time.Now().UTC() }}
}

func (q *QueryService) WithClock(now func() time.Time) *QueryService {
	q.now = now
	return q
}

func (q *QueryService) ProblemStats(ctx context.Context, id uuid.UUID, days int) (stats.ProblemStats, error) {
	subs, err := q.submissions(ctx, id)
	if err != nil {
		return stats.ProblemStats{}, err
	}
	return stats.Problems(subs, q.now(), days, q.opts), nil
}

func (q *QueryService) Activity(ctx context.Context, id uuid.UUID, days int) ([]stats.DayCount, error) {
	subs, err := q.submissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return stats.DailyActivity(subs, q.now(), days), nil
}

func (q *QueryService) Contests(ctx context.Context, id uuid.UUID, days int) ([]models.ContestResult, error) {
	if _, err := q.store.GetStudent(ctx, id); err != nil {
		return nil, err
	}
	contests, err := q.store.ListContests(ctx, id)
	if err != nil {
		return nil, err
	}
	return stats.ContestsSince(contests, q.now(), days), nil
}

func (q *QueryService) Failures(ctx context.Context, limit int) ([]models.SyncFailure, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return q.store.ListSyncFailures(ctx, limit)
}

func (q *QueryService) submissions(ctx context.Context, id uuid.UUID) ([]models.Submission, error) {
	if _, err := q.store.GetStudent(ctx, id); err != nil {
		return nil, err
	}
	return q.store.ListSubmissions(ctx, id)
}
