package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/codeforces"
	"github.com/sirdesai22/cf-tracker/internal/db"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"github.com/sirdesai22/cf-tracker/internal/services"
	"github.com/sirdesai22/cf-tracker/internal/stats"
	"github.com/smartystreets/goconvey/convey"
)

func strp(v string) *string { return &v }

func TestStudentService(t *testing.T) {
	convey.Convey("Given the student service", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		svc := services.NewStudentService(f.store, f.syncer)

		f.fetcher.contests["bob"] = []codeforces.RawContest{contest(5, 1700, now.Add(-time.Hour))}

		st, err := svc.Create(ctx, services.StudentInput{Name: strp(" Alice "), CodeforcesHandle: strp("alice")})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then a created student is trimmed and opted in to reminders", func() {
			convey.So(st.Name, convey.ShouldEqual, "Alice")
			convey.So(st.EmailRemindersEnabled, convey.ShouldBeTrue)
			convey.So(f.fetcher.callCount(), convey.ShouldEqual, 0)
		})

		convey.Convey("When only the name changes", func() {
			got, err := svc.Update(ctx, st.ID, services.StudentInput{Name: strp("Alicia")})

			convey.Convey("Then no sync runs", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Name, convey.ShouldEqual, "Alicia")
				convey.So(got.CodeforcesHandle, convey.ShouldEqual, "alice")
				convey.So(f.fetcher.callCount(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the handle changes", func() {
			got, err := svc.Update(ctx, st.ID, services.StudentInput{CodeforcesHandle: strp("bob")})

			convey.Convey("Then the student is synced under the new handle", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.CodeforcesHandle, convey.ShouldEqual, "bob")
				convey.So(*got.CurrentRating, convey.ShouldEqual, 1700)
				convey.So(f.fetcher.callCount(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the caller goes away while the new handle syncs", func() {
			reqCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			f.fetcher.onFetch = cancel
			got, err := svc.Update(reqCtx, st.ID, services.StudentInput{CodeforcesHandle: strp("bob")})

			convey.Convey("Then the sync still completes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(*got.CurrentRating, convey.ShouldEqual, 1700)

				failures, _ := f.store.ListSyncFailures(ctx, 10)
				convey.So(failures, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the handle is cleared", func() {
			_, err := svc.Update(ctx, st.ID, services.StudentInput{CodeforcesHandle: strp("")})

			convey.Convey("Then no sync runs", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.fetcher.callCount(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the new handle cannot be fetched", func() {
			f.fetcher.fail["ghost"] = true
			got, err := svc.Update(ctx, st.ID, services.StudentInput{CodeforcesHandle: strp("ghost")})

			convey.Convey("Then the edit is kept and the sync error is returned", func() {
				convey.So(errors.Is(err, services.ErrSyncFailed), convey.ShouldBeTrue)
				convey.So(got.CodeforcesHandle, convey.ShouldEqual, "ghost")

				stored, _ := f.store.GetStudent(ctx, st.ID)
				convey.So(stored.CodeforcesHandle, convey.ShouldEqual, "ghost")
				convey.So(stored.LastSyncedAt, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the student is deleted", func() {
			convey.So(svc.Delete(ctx, st.ID), convey.ShouldBeNil)

			convey.Convey("Then it is gone and a delete event is queued", func() {
				_, err := svc.Get(ctx, st.ID)
				convey.So(errors.Is(err, db.ErrStudentNotFound), convey.ShouldBeTrue)

				var n int64
				f.store.DB().Model(&models.Outbox{}).Where("entity_id = ? AND op = ?", st.ID, services.OpDelete).Count(&n)
				convey.So(n, convey.ShouldEqual, int64(1))
			})
		})

		convey.Convey("When the input is malformed", func() {
			_, createErr := svc.Create(ctx, services.StudentInput{Name: strp("Bob"), Email: strp("not-an-email")})
			_, nameErr := svc.Create(ctx, services.StudentInput{Name: strp("  ")})
			_, handleErr := svc.Update(ctx, st.ID, services.StudentInput{CodeforcesHandle: strp("a b")})

			convey.Convey("Then it is rejected before anything is stored or synced", func() {
				convey.So(errors.Is(createErr, services.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(createErr.Error(), convey.ShouldContainSubstring, "email")
				convey.So(errors.Is(nameErr, services.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(errors.Is(handleErr, services.ErrInvalidInput), convey.ShouldBeTrue)
				convey.So(f.fetcher.callCount(), convey.ShouldEqual, 0)

				stored, _ := f.store.GetStudent(ctx, st.ID)
				convey.So(stored.CodeforcesHandle, convey.ShouldEqual, "alice")
			})
		})

		convey.Convey("When an unknown student is updated", func() {
			_, err := svc.Update(ctx, models.Student{}.ID, services.StudentInput{Name: strp("x")})
			convey.So(errors.Is(err, db.ErrStudentNotFound), convey.ShouldBeTrue)
		})
	})
}

func TestQueryService(t *testing.T) {
	convey.Convey("Given a synced student", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		st := f.student(t, "carol")
		q := services.NewQueryService(f.store, stats.Options{}).WithClock(func() time.Time { return now })

		f.fetcher.contests["carol"] = []codeforces.RawContest{
			contest(1, 1400, now.Add(-200*24*time.Hour)),
			contest(2, 1500, now.Add(-10*24*time.Hour)),
		}
		f.fetcher.subs["carol"] = []codeforces.RawSubmission{
			accepted(1, "A", 1000, now.Add(-5*24*time.Hour)),
			accepted(1, "A", 1000, now.Add(-4*24*time.Hour)),
			accepted(2, "B", 1600, now.Add(-40*24*time.Hour)),
		}
		_, err := f.syncer.SyncOne(ctx, st.ID, services.TriggerManual)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then problem stats cover the window only", func() {
			ps, err := q.ProblemStats(ctx, st.ID, 30)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ps.Total, convey.ShouldEqual, 1)
			convey.So(ps.Hardest.Name, convey.ShouldEqual, "PA")
		})

		convey.Convey("Then activity counts every accepted submission", func() {
			days, err := q.Activity(ctx, st.ID, 365)
			convey.So(err, convey.ShouldBeNil)
			convey.So(days, convey.ShouldHaveLength, 3)
		})

		convey.Convey("Then contests are filtered by the window", func() {
			contests, err := q.Contests(ctx, st.ID, 90)
			convey.So(err, convey.ShouldBeNil)
			convey.So(contests, convey.ShouldHaveLength, 1)
			convey.So(contests[0].NewRating, convey.ShouldEqual, 1500)
		})

		convey.Convey("Then unknown students are reported as missing", func() {
			_, err := q.ProblemStats(ctx, models.Student{}.ID, 30)
			convey.So(errors.Is(err, db.ErrStudentNotFound), convey.ShouldBeTrue)
		})
	})
}
