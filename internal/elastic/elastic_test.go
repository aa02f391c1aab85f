package elastic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/elastic"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildStudentDoc(t *testing.T) {
	convey.Convey("Given a synced student", t, func() {
		rating := 1500
		synced := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		st := models.Student{Name: "Ada", CodeforcesHandle: "ada", CurrentRating: &rating, MaxRating: &rating, LastSyncedAt: &synced}

		body, err := elastic.BuildStudentDoc(st)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the document uses the index field names", func() {
			var doc map[string]any
			convey.So(json.Unmarshal(body, &doc), convey.ShouldBeNil)
			convey.So(doc["codeforces_handle"], convey.ShouldEqual, "ada")
			convey.So(doc["current_rating"], convey.ShouldEqual, 1500.0)
			convey.So(doc["last_synced_at"], convey.ShouldEqual, "2024-06-01T00:00:00Z")
		})
	})
}

// fakeCluster answers just enough of the index API for EnsureIndexes.
type fakeCluster struct {
	mu      sync.Mutex
	exists  bool
	created []string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodHead:
		if f.exists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		f.created = append(f.created, r.URL.Path)
		f.exists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func TestEnsureIndexes(t *testing.T) {
	convey.Convey("Given a cluster without the students index", t, func() {
		cluster := &fakeCluster{}
		srv := httptest.NewServer(cluster)
		defer srv.Close()

		client, err := elastic.Connect(srv.URL)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When indexes are ensured twice", func() {
			convey.So(elastic.EnsureIndexes(context.Background(), client), convey.ShouldBeNil)
			convey.So(elastic.EnsureIndexes(context.Background(), client), convey.ShouldBeNil)

			convey.Convey("Then the index is created once", func() {
				convey.So(cluster.created, convey.ShouldResemble, []string{"/" + elastic.IdxStudents})
			})
		})
	})
}
