package api

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/models"
	"github.com/sirdesai22/cf-tracker/internal/services"
)

func (h *handler) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Students.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if students == nil {
		students = []models.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var in services.StudentInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.Students.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *handler) getStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.Students.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// updateStudent saves the edit. If the handle changed and the follow-up sync failed,
// the edit is kept and the response is a 502 carrying both the error and the student.
func (h *handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in services.StudentInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	st, err := h.Students.Update(r.Context(), id, in)
	if errors.Is(err, services.ErrSyncFailed) {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Student: st})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Students.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) syncStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.Syncer.SyncOne(r.Context(), id, services.TriggerManual)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

var csvHeader = []string{"Name", "Email", "Phone", "CF Handle", "Current Rating", "Max Rating", "Last Synced"}

func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	students, err := h.Students.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, s := range students {
		_ = cw.Write([]string{
			s.Name, s.Email, s.Phone, s.CodeforcesHandle,
			optInt(s.CurrentRating), optInt(s.MaxRating), optDate(s.LastSyncedAt),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.Error().Err(err).Msg("CSV export failed")
	}
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
