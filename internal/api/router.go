// Package api exposes the roster, query and trigger endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/sirdesai22/cf-tracker/internal/db"
	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/services"
)

// Retrier re-applies a single DLQ entry.
type Retrier interface {
	Retry(ctx context.Context, id int64) error
}

type Deps struct {
	Students *services.StudentService
	Queries  *services.QueryService
	Syncer   *services.Syncer
	Store    *db.Store
	DLQ      Retrier // nil when the search feed is disabled

	ActivityDays   int
	AllowedOrigins []string
}

type handler struct {
	Deps
	log zerolog.Logger
}

func NewRouter(d Deps) http.Handler {
	h := &handler{Deps: d, log: logger.Named("api")}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.health)

	mux.HandleFunc("GET /api/students", h.listStudents)
	mux.HandleFunc("POST /api/students", h.createStudent)
	mux.HandleFunc("GET /api/students/export.csv", h.exportCSV)
	mux.HandleFunc("GET /api/students/{id}", h.getStudent)
	mux.HandleFunc("PUT /api/students/{id}", h.updateStudent)
	mux.HandleFunc("DELETE /api/students/{id}", h.deleteStudent)
	mux.HandleFunc("POST /api/students/{id}/sync", h.syncStudent)

	mux.HandleFunc("GET /api/students/{id}/problems", h.problemStats)
	mux.HandleFunc("GET /api/students/{id}/activity", h.activity)
	mux.HandleFunc("GET /api/students/{id}/contests", h.contests)

	mux.HandleFunc("GET /api/sync/failures", h.syncFailures)
	mux.HandleFunc("GET /api/outbox", h.listOutbox)
	mux.HandleFunc("GET /api/dlq", h.listDLQ)
	mux.HandleFunc("POST /api/dlq/{id}/retry", h.retryDLQ)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})
	return hlog.NewHandler(h.log)(access(corsMiddleware.Handler(mux)))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
