package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sirdesai22/cf-tracker/internal/codeforces"
	"github.com/sirdesai22/cf-tracker/internal/db"
	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/metrics"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"github.com/sirdesai22/cf-tracker/internal/normalize"
	"github.com/sirdesai22/cf-tracker/internal/stats"
	"golang.org/x/sync/errgroup"
)

type Trigger string

const (
	TriggerHandleChange Trigger = "handle_change"
	TriggerBatch        Trigger = "batch"
	TriggerManual       Trigger = "manual"
)

// StudentFailure is one entry of a batch tally.
type StudentFailure struct {
	StudentID uuid.UUID `json:"studentId"`
	Handle    string    `json:"handle"`
	Error     string    `json:"error"`
}

type BatchResult struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`   // no handle on record
	Cancelled int              `json:"cancelled"` // never started because the run was cancelled
	Failures  []StudentFailure `json:"failures"`
	Duration  time.Duration    `json:"duration"`
}

// Syncer pulls a student's history from the rating service and replaces the stored copy.
type Syncer struct {
	store       *db.Store
	fetcher     codeforces.Fetcher
	concurrency int
	locks       *keyedMutex
	now         func() time.Time
	log         zerolog.Logger
}

func NewSyncer(store *db.Store, fetcher codeforces.Fetcher, concurrency int) *Syncer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Syncer{
		store:       store,
		fetcher:     fetcher,
		concurrency: concurrency,
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.Named("syncer"),
	}
}

// WithClock replaces the time source; tests use it to pin "now".
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// SyncOne runs a full sync for one student. Syncs of the same student are serialised.
// On failure nothing stored for the student changes and a *SyncFailedError is returned.
func (s *Syncer) SyncOne(ctx context.Context, id uuid.UUID, trigger Trigger) (models.Student, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	start := time.Now()
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		err = &SyncFailedError{StudentID: id, Err: err}
		s.observe(trigger, start, err)
		return st, err
	}

	updated, err := s.sync(ctx, st)
	s.observe(trigger, start, err)
	if err != nil {
		s.recordFailure(ctx, st, trigger, err)
		return st, err
	}

	s.log.Info().
		Str("student_id", id.String()).
		Str("handle", st.CodeforcesHandle).
		Str("trigger", string(trigger)).
		Msg("Student synced")
	return updated, nil
}

func (s *Syncer) sync(ctx context.Context, st models.Student) (models.Student, error) {
	fail := func(err error) (models.Student, error) {
		return st, &SyncFailedError{StudentID: st.ID, Handle: st.CodeforcesHandle, Err: err}
	}
	if st.CodeforcesHandle == "" {
		return fail(ErrNoHandle)
	}

	rawContests, err := s.fetcher.FetchContestHistory(ctx, st.CodeforcesHandle)
	if err != nil {
		return fail(err)
	}
	rawSubs, err := s.fetcher.FetchSubmissions(ctx, st.CodeforcesHandle)
	if err != nil {
		return fail(err)
	}

	contests := normalize.Contests(st.ID, rawContests)
	subs := normalize.Submissions(st.ID, rawSubs)
	now := s.now()

	var updated models.Student
	err = s.store.Transaction(ctx, func(tx *db.Store) error {
		prev, err := tx.GetStudent(ctx, st.ID)
		if err != nil {
			return err
		}
		if err := tx.ReplaceContests(ctx, st.ID, contests); err != nil {
			return err
		}
		if err := tx.ReplaceSubmissions(ctx, st.ID, subs); err != nil {
			return err
		}

		sum := stats.RatingSummary(prev.Summary(), contests, now)
		if err := tx.UpdateRatingSummary(ctx, st.ID, sum); err != nil {
			return err
		}
		prev.CurrentRating, prev.MaxRating, prev.LastSyncedAt = sum.CurrentRating, sum.MaxRating, sum.LastSyncedAt
		updated = prev

		return AddOutboxEvent(tx.DB(), EntityStudent, st.ID, OpUpsert, updated)
	})
	if err != nil {
		return fail(fmt.Errorf("persist history: %w", err))
	}
	return updated, nil
}

// SyncAll syncs every student on the roster, isolating failures per student.
// Only a roster read failure is returned as an error. Cancelling ctx stops new
// students from starting; in-flight ones run to completion.
func (s *Syncer) SyncAll(ctx context.Context) (BatchResult, error) {
	start := time.Now()

	// The snapshot is taken even when ctx is already done; cancellation is honoured per student.
	students, err := s.store.ListStudents(context.WithoutCancel(ctx))
	if err != nil {
		return BatchResult{}, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}

	res := BatchResult{Total: len(students)}
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	// Go blocks while the pool is full, so the check runs right before each student starts.
	for i, st := range students {
		if ctx.Err() != nil {
			res.Cancelled = len(students) - i
			break
		}
		if st.CodeforcesHandle == "" {
			res.Skipped++
			continue
		}

		g.Go(func() error {
			_, err := s.SyncOne(context.WithoutCancel(ctx), st.ID, TriggerBatch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Failures = append(res.Failures, StudentFailure{
					StudentID: st.ID,
					Handle:    st.CodeforcesHandle,
					Error:     err.Error(),
				})
				return nil
			}
			res.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(start)
	metrics.BatchDuration.Observe(res.Duration.Seconds())
	s.log.Info().
		Int("total", res.Total).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Int("cancelled", res.Cancelled).
		Dur("duration", res.Duration).
		Msg("Batch sync completed")
	return res, nil
}

func (s *Syncer) observe(trigger Trigger, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.StudentSyncs.WithLabelValues(string(trigger), result).Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
}

func (s *Syncer) recordFailure(ctx context.Context, st models.Student, trigger Trigger, err error) {
	s.log.Error().
		Err(err).
		Str("student_id", st.ID.String()).
		Str("name", st.Name).
		Str("handle", st.CodeforcesHandle).
		Str("trigger", string(trigger)).
		Bool("fetch_failed", codeforces.IsFetchFailed(err)).
		Msg("Student sync failed")

	f := models.SyncFailure{
		StudentID: st.ID,
		Handle:    st.CodeforcesHandle,
		Trigger:   string(trigger),
		ErrorMsg:  err.Error(),
	}
	if rerr := s.store.RecordSyncFailure(context.WithoutCancel(ctx), &f); rerr != nil {
		s.log.Error().Err(rerr).Str("student_id", st.ID.String()).Msg("Failed to record sync failure")
	}
}
