package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/session"
)

// Records adapts the session repository to session.RecordStore.
type Records struct {
	sessions *SessionRepository
}

// Records returns a session.RecordStore backed by this store.
func (s *Store) Records() *Records {
	return &Records{sessions: s.Sessions()}
}

// LoadPrevious returns the stored session, or session.ErrNoRecord.
func (r *Records) LoadPrevious(ctx context.Context) (*session.Record, error) {
	sess, err := r.sessions.Latest(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, session.ErrNoRecord
		}
		return nil, err
	}
	return toRecord(sess)
}

// SavePrevious replaces the stored session with rec.
func (r *Records) SavePrevious(ctx context.Context, rec *session.Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	return r.sessions.Replace(ctx, fromRecord(rec))
}

func fromRecord(rec *session.Record) *Session {
	sess := &Session{
		ID:          rec.ID,
		SessionDate: rec.SessionDate,
		MaxStrength: rec.MaxStrength,
		Rows:        make([]SessionRow, 0, len(rec.Rows)),
	}
	for _, row := range rec.Rows {
		sess.Rows = append(sess.Rows, SessionRow{
			Timestamp:        row.Timestamp,
			TaskLabel:        row.TaskLabel,
			RepIndex:         row.RepIndex,
			Channel:          row.Channel.String(),
			EventKind:        row.Kind.String(),
			DurationSeconds:  row.Duration.Seconds(),
			ObservedStrength: row.Strength,
		})
	}
	return sess
}

func toRecord(sess *Session) (*session.Record, error) {
	rec := &session.Record{
		ID:          sess.ID,
		SessionDate: sess.SessionDate,
		MaxStrength: sess.MaxStrength,
	}
	for _, row := range sess.Rows {
		ch := hand.NoFinger
		if row.Channel != hand.NoFinger.String() {
			f, err := hand.ParseFinger(row.Channel)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row.Seq, err)
			}
			ch = f
		}
		kind, err := session.ParseRowKind(row.EventKind)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Seq, err)
		}
		rec.Rows = append(rec.Rows, session.Row{
			Timestamp: row.Timestamp,
			TaskLabel: row.TaskLabel,
			RepIndex:  row.RepIndex,
			Channel:   ch,
			Kind:      kind,
			Duration:  secondsToDuration(row.DurationSeconds),
			Strength:  row.ObservedStrength,
		})
	}
	return rec, nil
}

// secondsToDuration rounds to the nearest nanosecond so stored float
// seconds read back as the duration that was written.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
