package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/pkg/logger"
)

// writeWait bounds a single WebSocket write.
const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler streams per-frame updates over a WebSocket. Each client
// first receives the current status, then one message per processed
// frame. Slow clients miss updates rather than stall the pipeline.
type EventsHandler struct {
	app *app.App
	log logger.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(a *app.App, log logger.Logger) *EventsHandler {
	return &EventsHandler{app: a, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.app.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Keep connection alive by reading messages; a read error means the
	// client went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	hello := api.UpdateJSON{Type: "status", Status: h.app.Status()}
	if err := h.write(conn, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, api.NewUpdate(&up)); err != nil {
				h.log.Debug(ctx, "websocket client dropped", logger.Error(err))
				return
			}
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, msg api.UpdateJSON) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
