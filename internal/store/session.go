package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

// Session is the stored form of a session record.
type Session struct {
	ID          string
	SessionDate time.Time
	MaxStrength [5]float64 // thumb, index, middle, ring, pinky
	Rows        []SessionRow
	CreatedAt   time.Time
}

// SessionRow is the stored form of one session row.
type SessionRow struct {
	Seq              int
	Timestamp        time.Time
	TaskLabel        string
	RepIndex         int
	Channel          string
	EventKind        string
	DurationSeconds  float64
	ObservedStrength float64
}

// SessionRepository stores the single previous session.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Replace deletes any stored session and inserts sess with its rows in a
// single transaction.
func (r *SessionRepository) Replace(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	sess.CreatedAt = time.Now()
	m := sess.MaxStrength
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, session_date, max_thumb, max_index, max_middle, max_ring, max_pinky, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.SessionDate.Format(timeLayout), m[0], m[1], m[2], m[3], m[4], sess.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_rows (session_id, seq, timestamp, task_label, rep_index, channel, event_kind, duration_seconds, observed_strength)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range sess.Rows {
		row := &sess.Rows[i]
		row.Seq = i
		_, err := stmt.ExecContext(ctx,
			sess.ID, row.Seq, row.Timestamp.Format(timeLayout), row.TaskLabel, row.RepIndex,
			row.Channel, row.EventKind, row.DurationSeconds, row.ObservedStrength,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Latest returns the stored session with its rows.
func (r *SessionRepository) Latest(ctx context.Context) (*Session, error) {
	sess := &Session{}
	var date, created string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_date, max_thumb, max_index, max_middle, max_ring, max_pinky, created_at
		 FROM sessions ORDER BY created_at DESC LIMIT 1`,
	).Scan(&sess.ID, &date, &sess.MaxStrength[0], &sess.MaxStrength[1], &sess.MaxStrength[2],
		&sess.MaxStrength[3], &sess.MaxStrength[4], &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if sess.SessionDate, err = time.Parse(timeLayout, date); err != nil {
		return nil, fmt.Errorf("invalid session date %q: %w", date, err)
	}
	// created_at may hold the column default, which is not RFC 3339.
	sess.CreatedAt, _ = time.Parse(timeLayout, created)

	rows, err := r.Rows(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.Rows = rows
	return sess, nil
}

// Rows returns the rows of a session in order.
func (r *SessionRepository) Rows(ctx context.Context, sessionID string) ([]SessionRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, timestamp, task_label, rep_index, channel, event_kind, duration_seconds, observed_strength
		 FROM session_rows WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		var ts string
		if err := rows.Scan(&row.Seq, &ts, &row.TaskLabel, &row.RepIndex, &row.Channel,
			&row.EventKind, &row.DurationSeconds, &row.ObservedStrength); err != nil {
			return nil, err
		}
		if row.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("invalid row timestamp %q: %w", ts, err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Delete removes the stored session.
func (r *SessionRepository) Delete(ctx context.Context) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
