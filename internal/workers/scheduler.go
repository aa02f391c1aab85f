package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/metrics"
	"github.com/sirdesai22/cf-tracker/internal/services"
)

// Schedule yields the first firing strictly after the given time.
type Schedule interface {
	Next(after time.Time) time.Time
}

// Daily fires at Hour:Minute in Location and then every Interval from that anchor.
// With a 24h interval it is a plain once-a-day schedule.
type Daily struct {
	Hour     int
	Minute   int
	Interval time.Duration
	Location *time.Location
}

func (d Daily) Next(after time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	interval := d.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	t := after.In(loc)
	anchor := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, loc)
	if interval == 24*time.Hour {
		if anchor.After(t) {
			return anchor
		}
		return time.Date(t.Year(), t.Month(), t.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}

	elapsed := t.Sub(anchor)
	k := elapsed / interval
	if elapsed < 0 && elapsed%interval != 0 {
		k--
	}
	return anchor.Add((k + 1) * interval)
}

type BatchRunner interface {
	SyncAll(ctx context.Context) (services.BatchResult, error)
}

// Scheduler fires batch syncs on a Schedule. A firing that arrives while the
// previous batch is still running is skipped.
type Scheduler struct {
	runner     BatchRunner
	schedule   Schedule
	runOnStart bool

	running atomic.Bool
	wg      sync.WaitGroup
	now     func() time.Time
	log     zerolog.Logger
}

func NewScheduler(runner BatchRunner, schedule Schedule, runOnStart bool) *Scheduler {
	return &Scheduler{
		runner:     runner,
		schedule:   schedule,
		runOnStart: runOnStart,
		now:        time.Now,
		log:        logger.Named("scheduler"),
	}
}

// Run blocks until ctx is done and any in-flight batch has finished.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.wg.Wait()

	if s.runOnStart {
		s.Fire(ctx)
	}

	for {
		next := s.schedule.Next(s.now())
		s.log.Info().Time("next_run", next).Msg("Batch sync scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info().Msg("Scheduler stopping")
			return
		case <-timer.C:
			s.Fire(ctx)
		}
	}
}

// Fire starts a batch in the background and reports whether it started.
func (s *Scheduler) Fire(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		metrics.BatchRuns.WithLabelValues("skipped").Inc()
		s.log.Warn().Msg("Previous batch still running, skipping this firing")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		res, err := s.runner.SyncAll(ctx)
		if err != nil {
			metrics.BatchRuns.WithLabelValues("roster_error").Inc()
			s.log.Error().Err(err).Msg("Batch sync aborted")
			return
		}
		metrics.BatchRuns.WithLabelValues("completed").Inc()
		if res.Failed > 0 {
			s.log.Warn().Int("failed", res.Failed).Int("total", res.Total).Msg("Batch finished with failures")
		}
	}()
	return true
}

// Wait blocks until the in-flight batch, if any, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
