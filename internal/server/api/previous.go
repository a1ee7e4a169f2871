package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/session"
)

// PreviousHandler serves the persisted previous session at /api/previous.
type PreviousHandler struct {
	records session.RecordStore
}

// NewPreviousHandler creates a new PreviousHandler over records.
func NewPreviousHandler(records session.RecordStore) *PreviousHandler {
	return &PreviousHandler{records: records}
}

// ServeHTTP implements the http.Handler interface.
func (h *PreviousHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	rec, err := h.records.LoadPrevious(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrNoRecord) {
			writeError(w, http.StatusNotFound, "No previous session")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load previous session")
		return
	}
	writeJSON(w, http.StatusOK, NewRecord(rec))
}
