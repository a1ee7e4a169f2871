package e2e

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/testframes"
	"github.com/ayusman/mudra/pkg/metrics"
)

func newApp(t *testing.T, s *store.Store, m *metrics.Manager) *app.App {
	t.Helper()
	cfg := config.New()
	pc, err := cfg.PinchConfig()
	if err != nil {
		t.Fatalf("PinchConfig() error = %v", err)
	}
	tasks, err := cfg.Tasks()
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	a, err := app.New(context.Background(), app.Config{
		Pinch:    pc,
		Posture:  cfg.PostureConfig(),
		Tasks:    tasks,
		Records:  s.Records(),
		Settings: s.Settings(),
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	return a
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	m, err := metrics.NewManager()
	if err != nil {
		t.Fatalf("metrics.NewManager() error = %v", err)
	}

	recording, err := testframes.Bytes(testframes.Session)
	if err != nil {
		t.Fatalf("testframes.Bytes() error = %v", err)
	}

	runSession := func(t *testing.T) *httptest.Server {
		srv := server.New(server.Config{App: newApp(t, s, m), Records: s.Records(), Metrics: m})
		ts := httptest.NewServer(srv)
		t.Cleanup(ts.Close)
		client := ts.Client()

		resp, err := client.Post(ts.URL+"/api/session", "application/json", nil)
		if err != nil {
			t.Fatalf("start session error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("start status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		resp, err = client.Post(ts.URL+"/api/frames", "application/x-ndjson", bytes.NewReader(recording))
		if err != nil {
			t.Fatalf("post frames error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("frames status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var out struct {
			Accepted int `json:"accepted"`
			Status   struct {
				State string `json:"state"`
			} `json:"status"`
			Error string `json:"save_error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode frames response error = %v", err)
		}
		if out.Accepted == 0 {
			t.Error("expected frames to be accepted")
		}
		if out.Status.State != "session_complete" || out.Error != "" {
			t.Fatalf("expected a saved session, got state %q error %q", out.Status.State, out.Error)
		}
		return ts
	}

	t.Run("FirstSession", func(t *testing.T) {
		ts := runSession(t)
		client := ts.Client()

		resp, err := client.Get(ts.URL + "/api/session/report")
		if err != nil {
			t.Fatalf("get report error = %v", err)
		}
		defer resp.Body.Close()
		var report struct {
			FirstSession bool   `json:"first_session"`
			Text         string `json:"text"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			t.Fatalf("decode report error = %v", err)
		}
		if !report.FirstSession {
			t.Error("expected the first session to have no comparison")
		}
		if report.Text == "" {
			t.Error("expected a report text")
		}

		resp, err = client.Get(ts.URL + "/api/session/rows.csv")
		if err != nil {
			t.Fatalf("get rows error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("rows status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "session_") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		records, err := csv.NewReader(resp.Body).ReadAll()
		if err != nil {
			t.Fatalf("parse csv error = %v", err)
		}
		if len(records) != 15 {
			t.Fatalf("expected header and 14 rows, got %d lines", len(records))
		}
		if strings.Join(records[0], ",") != strings.Join(export.Header(), ",") {
			t.Errorf("unexpected header %v", records[0])
		}
	})

	t.Run("PreviousRecord", func(t *testing.T) {
		// A fresh process sees the record saved by the first session.
		srv := server.New(server.Config{App: newApp(t, s, m), Records: s.Records()})
		ts := httptest.NewServer(srv)
		defer ts.Close()

		resp, err := ts.Client().Get(ts.URL + "/api/previous")
		if err != nil {
			t.Fatalf("get previous error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("previous status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var rec struct {
			MaxStrength []float64         `json:"max_strength"`
			Rows        []json.RawMessage `json:"rows"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			t.Fatalf("decode previous error = %v", err)
		}
		if len(rec.Rows) != 14 {
			t.Errorf("expected 14 rows, got %d", len(rec.Rows))
		}
		if len(rec.MaxStrength) != 5 || rec.MaxStrength[1] < 0.9 {
			t.Errorf("unexpected max strengths %v", rec.MaxStrength)
		}
	})

	t.Run("SecondSessionCompares", func(t *testing.T) {
		ts := runSession(t)

		resp, err := ts.Client().Get(ts.URL + "/api/session/report")
		if err != nil {
			t.Fatalf("get report error = %v", err)
		}
		defer resp.Body.Close()
		var report struct {
			FirstSession bool `json:"first_session"`
			Channels     []struct {
				Finger string `json:"finger"`
				Trend  string `json:"trend"`
			} `json:"channels"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			t.Fatalf("decode report error = %v", err)
		}
		if report.FirstSession {
			t.Fatal("expected a comparison with the first session")
		}
		if len(report.Channels) == 0 {
			t.Fatal("expected per-finger comparisons")
		}
		for _, c := range report.Channels {
			if c.Trend != "stable" {
				t.Errorf("%s: expected stable, got %s", c.Finger, c.Trend)
			}
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		ts := httptest.NewServer(server.New(server.Config{Metrics: m}))
		defer ts.Close()

		resp, err := ts.Client().Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("get metrics error = %v", err)
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		for _, want := range []string{
			"mudra_sessions_completed_total 2",
			`mudra_reps_completed_total{kind="posture_hold"} 6`,
		} {
			if !strings.Contains(string(raw), want) {
				t.Errorf("expected metrics to contain %q", want)
			}
		}
	})
}
