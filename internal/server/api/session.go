package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/session"
)

// SessionHandler handles the live session resources:
//
//	GET  /api/session            status
//	POST /api/session            start a new session
//	POST /api/session/retry      retry a failed save
//	GET  /api/session/report     end-of-session comparison
//	GET  /api/session/rows.csv   rows of the current session as CSV
//	GET  /api/session/tasks      configured task script
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.app.Status())
		case http.MethodPost:
			h.start(w, r)
		default:
			methodNotAllowed(w)
		}
	case "retry":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.retry(w, r)
	case "report":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.report(w, r)
	case "rows.csv":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.rows(w, r)
	case "tasks":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.tasks(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type startResponse struct {
	Notices []NoticeJSON   `json:"notices"`
	Status  session.Status `json:"status"`
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	notices := h.app.StartSession(r.Context())
	resp := startResponse{
		Notices: make([]NoticeJSON, 0, len(notices)),
		Status:  h.app.Status(),
	}
	for i := range notices {
		resp.Notices = append(resp.Notices, NewNotice(&notices[i]))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandler) retry(w http.ResponseWriter, r *http.Request) {
	err := h.app.RetrySave(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.app.Status())
	case errors.Is(err, session.ErrNotActive):
		writeError(w, http.StatusConflict, "No failed save to retry")
	default:
		writeError(w, http.StatusServiceUnavailable, "Failed to save session")
	}
}

type reportResponse struct {
	session.Report
	Text string `json:"text"`
}

func (h *SessionHandler) report(w http.ResponseWriter, _ *http.Request) {
	rep, err := h.app.Report()
	if err != nil {
		writeError(w, http.StatusConflict, "Session has not finished")
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: rep, Text: rep.String()})
}

func (h *SessionHandler) rows(w http.ResponseWriter, _ *http.Request) {
	rec := h.app.Record()
	if rec == nil {
		writeError(w, http.StatusNotFound, "No session recorded")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRows(&buf, rec.Rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export rows")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(rec.SessionDate)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type taskResponse struct {
	Label          string  `json:"label"`
	Instruction    string  `json:"instruction,omitempty"`
	Kind           string  `json:"kind"`
	Channel        string  `json:"channel,omitempty"`
	Hand           string  `json:"hand"`
	TargetStrength float64 `json:"target_strength,omitempty"`
	HoldSeconds    float64 `json:"hold_seconds,omitempty"`
	Reps           int     `json:"reps"`
	Posture        string  `json:"posture,omitempty"`
}

func (h *SessionHandler) tasks(w http.ResponseWriter, _ *http.Request) {
	tasks := h.app.Tasks()
	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		tr := taskResponse{
			Label:          t.Name(),
			Instruction:    t.Instruction,
			Kind:           t.Kind.String(),
			Hand:           t.Hand.String(),
			TargetStrength: t.TargetStrength,
			HoldSeconds:    t.Hold.Seconds(),
			Reps:           t.RepCount(),
		}
		if t.Kind == session.PostureHold {
			tr.Posture = t.Posture.String()
		} else {
			tr.Channel = t.Channel.String()
		}
		resp = append(resp, tr)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": resp})
}
