package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pinch"
	"github.com/ayusman/mudra/internal/posture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/pkg/metrics"
)

func TestAPI_SessionWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	m, err := metrics.NewManager()
	if err != nil {
		t.Fatalf("metrics.NewManager() error = %v", err)
	}

	pc := pinch.DefaultConfig()
	pc.Smoothing = pinch.SmoothingNone
	a, err := app.New(context.Background(), app.Config{
		Pinch:   pc,
		Posture: posture.DefaultConfig(),
		Tasks: []session.Task{
			{Label: "index pinch", Kind: session.RepeatedPinches, Channel: hand.Index, TargetStrength: 0.6},
			{Label: "gyan", Kind: session.PostureHold, Channel: hand.NoFinger, Posture: posture.Gyan},
		},
		Records:  s.Records(),
		Settings: s.Settings(),
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	srv := New(Config{App: a, Records: s.Records(), Metrics: m})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	// 1. Connect to the event stream
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", wsURL, err)
	}
	defer conn.Close()

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello error = %v", err)
	}
	if hello["type"] != "status" {
		t.Fatalf("expected a status greeting, got %v", hello)
	}

	// 2. Start the session
	resp, err := client.Post(ts.URL+"/api/session", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/session error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	// 3. Feed a pinch and a gyan posture
	var body strings.Builder
	for _, r := range []hand.Reading{
		hand.FingerStrength(hand.Index, 0.9),
		hand.FingerStrength(hand.Index, 0.1),
		hand.PoseReading(hand.Index),
	} {
		f := hand.Frame{Elapsed: hand.DefaultFrameInterval}
		f.Hands[hand.Left] = r
		line, err := hand.EncodeFrame(f)
		if err != nil {
			t.Fatalf("EncodeFrame() error = %v", err)
		}
		body.Write(line)
		body.WriteString("\n")
	}
	resp, err = client.Post(ts.URL+"/api/frames", "application/x-ndjson", strings.NewReader(body.String()))
	if err != nil {
		t.Fatalf("POST /api/frames error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/frames status = %d", resp.StatusCode)
	}

	// 4. The stream reports the completed session
	completed := false
	deadline := time.Now().Add(5 * time.Second)
	for !completed && time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		var msg struct {
			Notices []struct {
				Kind string `json:"kind"`
			} `json:"notices"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read update error = %v", err)
		}
		for _, n := range msg.Notices {
			if n.Kind == "session_completed" {
				completed = true
			}
		}
	}
	if !completed {
		t.Fatal("expected a session_completed notice on the stream")
	}

	// 5. The saved session is served back
	resp, err = client.Get(ts.URL + "/api/previous")
	if err != nil {
		t.Fatalf("GET /api/previous error = %v", err)
	}
	var prev struct {
		Rows []struct {
			Kind string `json:"event_kind"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&prev); err != nil {
		t.Fatalf("decode previous error = %v", err)
	}
	resp.Body.Close()
	if len(prev.Rows) != 2 || prev.Rows[0].Kind != "PinchRep" || prev.Rows[1].Kind != "PostureHold" {
		t.Errorf("unexpected rows %+v", prev.Rows)
	}

	// 6. Metrics reflect the run
	resp, err = client.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		"mudra_sessions_started_total 1",
		"mudra_sessions_completed_total 1",
		`mudra_posture_changes_total{hand="left",label="gyan"} 1`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}
