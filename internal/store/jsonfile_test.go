package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/session"
)

func TestJSONFile(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file has no record", func(t *testing.T) {
		j := NewJSONFile(filepath.Join(t.TempDir(), DefaultJSONFileName))
		if _, err := j.LoadPrevious(ctx); !errors.Is(err, session.ErrNoRecord) {
			t.Errorf("expected ErrNoRecord, got %v", err)
		}
	})

	t.Run("writes the record format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", DefaultJSONFileName)
		j := NewJSONFile(path)
		j.loc = time.UTC

		rec := testRecord("ignored")
		if err := j.SavePrevious(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("parse: %v", err)
		}
		if raw["sessionDate"] != "2026-05-04 10:30:00" {
			t.Errorf("unexpected sessionDate %v", raw["sessionDate"])
		}
		strengths, ok := raw["maxPinchStrength"].([]any)
		if !ok || len(strengths) != hand.NumFingers {
			t.Fatalf("expected %d strengths, got %v", hand.NumFingers, raw["maxPinchStrength"])
		}
		if len(raw) != 2 {
			t.Errorf("expected exactly two fields, got %v", raw)
		}

		got, err := j.LoadPrevious(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.MaxStrength != rec.MaxStrength {
			t.Errorf("expected %v, got %v", rec.MaxStrength, got.MaxStrength)
		}
		if !got.SessionDate.Equal(rec.SessionDate) {
			t.Errorf("expected %v, got %v", rec.SessionDate, got.SessionDate)
		}
	})

	t.Run("corrupt file is an error, not ErrNoRecord", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultJSONFileName)
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := NewJSONFile(path).LoadPrevious(ctx)
		if err == nil || errors.Is(err, session.ErrNoRecord) {
			t.Errorf("expected a parse error, got %v", err)
		}
	})

	t.Run("wrong strength count is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultJSONFileName)
		doc := `{"sessionDate":"2026-01-01 00:00:00","maxPinchStrength":[0.1,0.2]}`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewJSONFile(path).LoadPrevious(ctx); err == nil {
			t.Error("expected error for short strength list")
		}
	})

	t.Run("unwritable directory fails to save", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		j := NewJSONFile(filepath.Join(blocker, DefaultJSONFileName))
		if err := j.SavePrevious(ctx, testRecord("x")); err == nil {
			t.Error("expected error when parent is a file")
		}
	})
}
