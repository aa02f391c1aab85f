package workers_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/services"
	"github.com/sirdesai22/cf-tracker/internal/workers"
	"github.com/smartystreets/goconvey/convey"
)

func TestDailyNext(t *testing.T) {
	convey.Convey("Given a 02:00 daily schedule", t, func() {
		d := workers.Daily{Hour: 2, Interval: 24 * time.Hour, Location: time.UTC}

		convey.Convey("Then before 02:00 it fires the same day", func() {
			got := d.Next(time.Date(2024, 6, 1, 1, 30, 0, 0, time.UTC))
			convey.So(got, convey.ShouldEqual, time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC))
		})

		convey.Convey("Then at or after 02:00 it fires the next day", func() {
			got := d.Next(time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC))
			convey.So(got, convey.ShouldEqual, time.Date(2024, 6, 2, 2, 0, 0, 0, time.UTC))
		})
	})

	convey.Convey("Given a schedule in another timezone", t, func() {
		loc := time.FixedZone("IST", 5*3600+1800)
		d := workers.Daily{Hour: 2, Interval: 24 * time.Hour, Location: loc}

		got := d.Next(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

		convey.Convey("Then the hour is read in that zone", func() {
			convey.So(got.Equal(time.Date(2024, 6, 2, 2, 0, 0, 0, loc)), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a six-hourly schedule anchored at 02:00", t, func() {
		d := workers.Daily{Hour: 2, Interval: 6 * time.Hour, Location: time.UTC}

		convey.Convey("Then firings step from the anchor", func() {
			convey.So(d.Next(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)), convey.ShouldEqual, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC))
			convey.So(d.Next(time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)), convey.ShouldEqual, time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC))
			convey.So(d.Next(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)), convey.ShouldEqual, time.Date(2024, 6, 2, 2, 0, 0, 0, time.UTC))
		})
	})
}

type blockingRunner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{release: make(chan struct{}), started: make(chan struct{})}
}

func (r *blockingRunner) SyncAll(ctx context.Context) (services.BatchResult, error) {
	r.calls.Add(1)
	r.once.Do(func() { close(r.started) })
	<-r.release
	return services.BatchResult{}, nil
}

// farSchedule never fires during a test.
type farSchedule struct{}

func (farSchedule) Next(after time.Time) time.Time { return after.Add(time.Hour) }

func TestSchedulerFire(t *testing.T) {
	convey.Convey("Given a batch that is still running", t, func() {
		runner := newBlockingRunner()
		s := workers.NewScheduler(runner, farSchedule{}, false)

		convey.So(s.Fire(context.Background()), convey.ShouldBeTrue)
		<-runner.started

		convey.Convey("When the schedule fires again", func() {
			started := s.Fire(context.Background())

			convey.Convey("Then the firing is skipped", func() {
				convey.So(started, convey.ShouldBeFalse)
				close(runner.release)
				s.Wait()
				convey.So(runner.calls.Load(), convey.ShouldEqual, int32(1))
			})
		})

		convey.Convey("When the batch has finished", func() {
			close(runner.release)
			s.Wait()

			convey.Convey("Then the next firing runs", func() {
				convey.So(s.Fire(context.Background()), convey.ShouldBeTrue)
				s.Wait()
				convey.So(runner.calls.Load(), convey.ShouldEqual, int32(2))
			})
		})
	})
}

func TestSchedulerRun(t *testing.T) {
	convey.Convey("Given a scheduler that runs on start", t, func() {
		runner := newBlockingRunner()
		s := workers.NewScheduler(runner, farSchedule{}, true)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()
		<-runner.started

		convey.Convey("When it is stopped mid-batch", func() {
			cancel()

			convey.Convey("Then Run waits for the batch to finish", func() {
				select {
				case <-done:
					t.Fatal("Run returned before the batch finished")
				case <-time.After(50 * time.Millisecond):
				}
				close(runner.release)
				<-done
				convey.So(runner.calls.Load(), convey.ShouldEqual, int32(1))
			})
		})
	})
}
