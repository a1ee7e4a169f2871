package api

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/posture"
	"github.com/ayusman/mudra/internal/session"
)

// maxFrameBody caps the request body of frame uploads.
const maxFrameBody = 8 << 20

// HandsHandler serves the live per-hand readout, including the posture
// geometry used for threshold tuning.
type HandsHandler struct {
	app *app.App
}

// NewHandsHandler creates a new HandsHandler.
func NewHandsHandler(a *app.App) *HandsHandler {
	return &HandsHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
func (h *HandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	hands := h.app.Hands()
	writeJSON(w, http.StatusOK, map[string]any{"hands": hands[:]})
}

// FramesHandler accepts tracking frames at POST /api/frames. The body is
// one JSON frame per line, in the replay format.
type FramesHandler struct {
	app *app.App
}

// NewFramesHandler creates a new FramesHandler.
func NewFramesHandler(a *app.App) *FramesHandler {
	return &FramesHandler{app: a}
}

type framesResponse struct {
	Accepted int            `json:"accepted"`
	Updates  []UpdateJSON   `json:"updates"`
	Status   session.Status `json:"status"`
	Error    string         `json:"save_error,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	frames, err := readFrames(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(frames) == 0 {
		writeError(w, http.StatusBadRequest, "No frames")
		return
	}

	resp := framesResponse{Updates: make([]UpdateJSON, 0, len(frames))}
	for _, f := range frames {
		up, err := h.app.Tick(r.Context(), f)
		if err != nil {
			if !errors.Is(err, session.ErrPersist) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			resp.Error = err.Error()
		}
		resp.Accepted++
		resp.Updates = append(resp.Updates, NewUpdate(&up))
	}
	resp.Status = h.app.Status()
	writeJSON(w, http.StatusOK, resp)
}

// CalibrateHandler derives the reference hand length from frames posted
// to /api/calibrate, in the same format as /api/frames. Every tracked hand
// contributes one sample.
type CalibrateHandler struct {
	app *app.App
}

// NewCalibrateHandler creates a new CalibrateHandler.
func NewCalibrateHandler(a *app.App) *CalibrateHandler {
	return &CalibrateHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
func (h *CalibrateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	frames, err := readFrames(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var samples []hand.Skeleton
	for _, f := range frames {
		for _, side := range hand.Sides {
			if rd := f.Hand(side); rd.Tracked {
				samples = append(samples, rd.Skeleton)
			}
		}
	}

	cal, err := h.app.Calibrate(r.Context(), samples)
	switch {
	case errors.Is(err, posture.ErrNoSamples):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to store calibration")
	default:
		writeJSON(w, http.StatusOK, cal)
	}
}

func readFrames(r *http.Request) ([]hand.Frame, error) {
	sc := bufio.NewScanner(http.MaxBytesReader(nil, r.Body, maxFrameBody))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var frames []hand.Frame
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		f, err := hand.DecodeFrame([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return frames, nil
}
