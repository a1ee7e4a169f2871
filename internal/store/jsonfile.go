package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/session"
)

// DefaultJSONFileName is the file written by JSONFile when given a directory.
const DefaultJSONFileName = "rehabData.json"

// jsonRecord is the persisted record: the session date and one peak
// strength per finger slot. Rows are not kept in this format.
type jsonRecord struct {
	SessionDate      string    `json:"sessionDate"`
	MaxPinchStrength []float64 `json:"maxPinchStrength"`
}

// JSONFile is a session.RecordStore that keeps the previous session in a
// single JSON document.
type JSONFile struct {
	path string
	loc  *time.Location
}

// NewJSONFile creates a JSONFile at path. Session dates are read in the
// local time zone.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path, loc: time.Local}
}

// Path returns the file path.
func (j *JSONFile) Path() string {
	return j.path
}

// LoadPrevious reads the file. A missing file is session.ErrNoRecord.
func (j *JSONFile) LoadPrevious(ctx context.Context) (*session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, session.ErrNoRecord
		}
		return nil, fmt.Errorf("failed to read %s: %w", j.path, err)
	}

	var jr jsonRecord
	if err := json.Unmarshal(data, &jr); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", j.path, err)
	}
	if len(jr.MaxPinchStrength) != hand.NumFingers {
		return nil, fmt.Errorf("%s: got %d strengths, expected %d", j.path, len(jr.MaxPinchStrength), hand.NumFingers)
	}

	date, err := time.ParseInLocation(session.DateLayout, jr.SessionDate, j.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid session date: %w", j.path, err)
	}

	rec := &session.Record{SessionDate: date}
	for i, v := range jr.MaxPinchStrength {
		rec.MaxStrength[i] = hand.Clamp01(v)
	}
	return rec, nil
}

// SavePrevious overwrites the file with rec. The write goes through a
// temporary file in the same directory so a failed write leaves the old
// record in place.
func (j *JSONFile) SavePrevious(ctx context.Context, rec *session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return errors.New("nil record")
	}

	jr := jsonRecord{
		SessionDate:      rec.SessionDate.In(j.loc).Format(session.DateLayout),
		MaxPinchStrength: append([]float64(nil), rec.MaxStrength[:]...),
	}
	data, err := json.MarshalIndent(jr, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".rehab-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", j.path, err)
	}
	return nil
}
