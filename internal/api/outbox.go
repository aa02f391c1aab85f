package api

import (
	"fmt"
	"net/http"
	"strconv"
)

func (h *handler) listOutbox(w http.ResponseWriter, r *http.Request) {
	out, err := h.Store.ListOutbox(r.Context(), listLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listDLQ(w http.ResponseWriter, r *http.Request) {
	out, err := h.Store.ListDLQ(r.Context(), listLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) retryDLQ(w http.ResponseWriter, r *http.Request) {
	if h.DLQ == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "search feed is disabled"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid dlq id", errBadRequest))
		return
	}
	if err := h.DLQ.Retry(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "retried"})
}
