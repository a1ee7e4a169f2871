package api

import (
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pinch"
	"github.com/ayusman/mudra/internal/session"
)

// EventJSON is the wire form of a pinch event.
type EventJSON struct {
	Kind     pinch.Kind  `json:"kind"`
	Side     hand.Side   `json:"side"`
	Finger   hand.Finger `json:"finger"`
	Strength float64     `json:"strength"`
}

// RowJSON is the wire form of a session row.
type RowJSON struct {
	Timestamp       time.Time       `json:"timestamp"`
	TaskLabel       string          `json:"task_label"`
	RepIndex        int             `json:"rep_index"`
	Channel         hand.Finger     `json:"channel"`
	Kind            session.RowKind `json:"event_kind"`
	DurationSeconds float64         `json:"duration_seconds"`
	Strength        float64         `json:"observed_strength"`
}

// NoticeJSON is the wire form of an orchestrator notice.
type NoticeJSON struct {
	Kind      session.NoticeKind `json:"kind"`
	At        time.Time          `json:"at"`
	TaskIndex int                `json:"task_index"`
	Task      string             `json:"task,omitempty"`
	Side      *hand.Side         `json:"side,omitempty"`
	Channel   hand.Finger        `json:"channel"`
	Rep       int                `json:"rep,omitempty"`
	Strength  float64            `json:"strength,omitempty"`
	Row       *RowJSON           `json:"row,omitempty"`
}

// RecordJSON is the wire form of a session record.
type RecordJSON struct {
	ID          string                   `json:"id"`
	SessionDate string                   `json:"session_date"`
	MaxStrength [hand.NumFingers]float64 `json:"max_strength"`
	Rows        []RowJSON                `json:"rows"`
}

// UpdateJSON is one frame's output as streamed to clients.
type UpdateJSON struct {
	Type     string              `json:"type"`
	Seq      uint64              `json:"seq"`
	Pinch    []EventJSON         `json:"pinch,omitempty"`
	Postures []app.PostureChange `json:"postures,omitempty"`
	Notices  []NoticeJSON        `json:"notices,omitempty"`
	Status   session.Status      `json:"status"`
}

// NewRow converts a session row.
func NewRow(r *session.Row) RowJSON {
	return RowJSON{
		Timestamp:       r.Timestamp,
		TaskLabel:       r.TaskLabel,
		RepIndex:        r.RepIndex,
		Channel:         r.Channel,
		Kind:            r.Kind,
		DurationSeconds: r.Duration.Seconds(),
		Strength:        r.Strength,
	}
}

// NewNotice converts an orchestrator notice. Side is omitted for notices
// that are not about a hand.
func NewNotice(n *session.Notice) NoticeJSON {
	out := NoticeJSON{
		Kind:      n.Kind,
		At:        n.At,
		TaskIndex: n.TaskIndex,
		Task:      n.Task,
		Channel:   n.Channel,
		Rep:       n.Rep,
		Strength:  n.Strength,
	}
	switch n.Kind {
	case session.NoticePinchStart, session.NoticePinchEnd, session.NoticeRepCompleted:
		side := n.Side
		out.Side = &side
	}
	if n.Row != nil {
		row := NewRow(n.Row)
		out.Row = &row
	}
	return out
}

// NewRecord converts a session record.
func NewRecord(r *session.Record) RecordJSON {
	out := RecordJSON{
		ID:          r.ID,
		SessionDate: r.SessionDate.Format(session.DateLayout),
		MaxStrength: r.MaxStrength,
		Rows:        make([]RowJSON, 0, len(r.Rows)),
	}
	for i := range r.Rows {
		out.Rows = append(out.Rows, NewRow(&r.Rows[i]))
	}
	return out
}

// NewUpdate converts one frame update.
func NewUpdate(up *app.Update) UpdateJSON {
	out := UpdateJSON{
		Type:     "update",
		Seq:      up.Seq,
		Postures: up.Postures,
		Status:   up.Status,
	}
	for _, ev := range up.Pinch {
		out.Pinch = append(out.Pinch, EventJSON(ev))
	}
	for i := range up.Notices {
		out.Notices = append(out.Notices, NewNotice(&up.Notices[i]))
	}
	return out
}
