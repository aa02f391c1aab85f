package codeforces_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/codeforces"
	"github.com/smartystreets/goconvey/convey"
)

const ratingBody = `{"status":"OK","result":[
 {"contestId":1500,"contestName":"Round 1","handle":"tourist","rank":3,"ratingUpdateTimeSeconds":1600000000,"oldRating":1500,"newRating":1620},
 {"contestId":1501,"contestName":"Round 2","handle":"tourist","rank":40,"ratingUpdateTimeSeconds":1600600000,"oldRating":1620,"newRating":1580}
]}`

const statusBody = `{"status":"OK","result":[
 {"id":2,"contestId":1500,"creationTimeSeconds":1600000500,"problem":{"contestId":1500,"index":"C","name":"Cut","rating":1600,"tags":["dp"]},"verdict":"OK"},
 {"id":1,"contestId":1500,"creationTimeSeconds":1600000100,"problem":{"contestId":1500,"index":"C","name":"Cut","tags":[]},"verdict":"WRONG_ANSWER"}
]}`

func newServer(t *testing.T) (*httptest.Server, *url.Values) {
	t.Helper()
	last := &url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*last = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		handle := r.URL.Query().Get("handle")
		switch {
		case handle == "ghost":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"FAILED","comment":"handle: User with handle ghost not found"}`))
		case handle == "broken":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		case r.URL.Path == "/user.rating":
			_, _ = w.Write([]byte(ratingBody))
		case r.URL.Path == "/user.status":
			_, _ = w.Write([]byte(statusBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func TestClient(t *testing.T) {
	convey.Convey("Given a client pointed at a fake rating service", t, func() {
		srv, last := newServer(t)
		client := codeforces.NewClient(srv.URL+"/", 5*time.Second, 1000)
		ctx := context.Background()

		convey.Convey("When fetching contest history", func() {
			contests, err := client.FetchContestHistory(ctx, "tourist")

			convey.Convey("Then the raw entries are decoded in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(contests, convey.ShouldHaveLength, 2)
				convey.So(contests[0].ContestID, convey.ShouldEqual, 1500)
				convey.So(contests[1].NewRating, convey.ShouldEqual, 1580)
			})
		})

		convey.Convey("When fetching submissions", func() {
			subs, err := client.FetchSubmissions(ctx, "tourist")

			convey.Convey("Then the request is bounded and the entries decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(last.Get("count"), convey.ShouldEqual, "1000")
				convey.So(last.Get("from"), convey.ShouldEqual, "1")
				convey.So(subs, convey.ShouldHaveLength, 2)
				convey.So(subs[0].Problem.Rating, convey.ShouldEqual, 1600)
				convey.So(subs[1].Verdict, convey.ShouldEqual, "WRONG_ANSWER")
			})
		})

		convey.Convey("When the handle is unknown", func() {
			_, err := client.FetchContestHistory(ctx, "ghost")

			convey.Convey("Then FetchFailed carries the handle and the service comment", func() {
				var ff *codeforces.FetchFailedError
				convey.So(errors.As(err, &ff), convey.ShouldBeTrue)
				convey.So(ff.Handle, convey.ShouldEqual, "ghost")
				convey.So(errors.Is(err, codeforces.ErrRejected), convey.ShouldBeTrue)
				convey.So(codeforces.IsFetchFailed(err), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "not found")
			})
		})

		convey.Convey("When the service answers with a non-success status", func() {
			_, err := client.FetchSubmissions(ctx, "broken")

			convey.Convey("Then it is a FetchFailed with ErrBadStatus", func() {
				convey.So(codeforces.IsFetchFailed(err), convey.ShouldBeTrue)
				convey.So(errors.Is(err, codeforces.ErrBadStatus), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the handle is empty", func() {
			_, err := client.FetchSubmissions(ctx, "  ")

			convey.Convey("Then no request is needed to fail", func() {
				convey.So(errors.Is(err, codeforces.ErrEmptyHandle), convey.ShouldBeTrue)
				convey.So(codeforces.IsFetchFailed(err), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a service that is unreachable", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := codeforces.NewClient(srv.URL, time.Second, 10)

		_, err := client.FetchContestHistory(context.Background(), "tourist")

		convey.So(codeforces.IsFetchFailed(err), convey.ShouldBeTrue)
	})
}
