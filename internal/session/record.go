package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

// DateLayout is the layout of persisted session dates.
const DateLayout = "2006-01-02 15:04:05"

// RowKind is the event recorded by a Row.
type RowKind int

const (
	RowPinchRep RowKind = iota
	RowPostureHold
)

func (k RowKind) String() string {
	switch k {
	case RowPinchRep:
		return "PinchRep"
	case RowPostureHold:
		return "PostureHold"
	default:
		return fmt.Sprintf("RowKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k RowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseRowKind parses "PinchRep" or "PostureHold".
func ParseRowKind(v string) (RowKind, error) {
	switch v {
	case "PinchRep":
		return RowPinchRep, nil
	case "PostureHold":
		return RowPostureHold, nil
	default:
		return 0, fmt.Errorf("unknown row kind %q", v)
	}
}

// Row is one completed repetition or posture hold. Channel is
// hand.NoFinger for posture rows.
type Row struct {
	Timestamp time.Time
	TaskLabel string
	RepIndex  int
	Channel   hand.Finger
	Kind      RowKind
	Duration  time.Duration
	Strength  float64
}

// Record is one session: its peak strength per finger and its rows.
type Record struct {
	ID          string
	SessionDate time.Time
	MaxStrength [hand.NumFingers]float64
	Rows        []Row
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Rows = append([]Row(nil), r.Rows...)
	return &c
}

// Observe raises each finger's peak to at least the given strength.
func (r *Record) Observe(strengths [hand.NumFingers]float64) {
	for f, v := range strengths {
		v = hand.Clamp01(v)
		if v > r.MaxStrength[f] {
			r.MaxStrength[f] = v
		}
	}
}

// RecordStore loads and saves the single previous session.
type RecordStore interface {
	// LoadPrevious returns ErrNoRecord when nothing has been saved.
	LoadPrevious(ctx context.Context) (*Record, error)
	// SavePrevious replaces the saved session with rec.
	SavePrevious(ctx context.Context, rec *Record) error
}

// MemoryStore is an in-memory RecordStore.
type MemoryStore struct {
	rec *Record
	// SaveErr, when set, is returned by SavePrevious.
	SaveErr error
	// LoadErr, when set, is returned by LoadPrevious.
	LoadErr error
}

// LoadPrevious returns a copy of the saved record.
func (m *MemoryStore) LoadPrevious(context.Context) (*Record, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.rec == nil {
		return nil, ErrNoRecord
	}
	return m.rec.Clone(), nil
}

// SavePrevious stores a copy of rec.
func (m *MemoryStore) SavePrevious(_ context.Context, rec *Record) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.rec = rec.Clone()
	return nil
}
