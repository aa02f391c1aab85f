package api

import (
	"fmt"
	"net/http"

	"github.com/sirdesai22/cf-tracker/internal/stats"
)

const listLimit = 100

// queryDays reads the trailing window length, rejecting anything above stats.MaxDays.
func queryDays(r *http.Request, def int) (int, error) {
	days, err := queryInt(r, "days", def)
	if err != nil {
		return 0, err
	}
	if days > stats.MaxDays {
		return 0, fmt.Errorf("%w: days must be at most %d", errBadRequest, stats.MaxDays)
	}
	return days, nil
}

func (h *handler) problemStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	days, err := queryDays(r, stats.DefaultProblemDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ps, err := h.Queries.ProblemStats(r.Context(), id, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *handler) activity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	def := h.ActivityDays
	if def <= 0 {
		def = stats.DefaultActivityDays
	}
	days, err := queryDays(r, def)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Queries.Activity(r.Context(), id, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) contests(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	days, err := queryDays(r, stats.DefaultContestDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Queries.Contests(r.Context(), id, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) syncFailures(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", listLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Queries.Failures(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
