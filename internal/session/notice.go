package session

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

// NoticeKind identifies an orchestrator notice.
type NoticeKind int

const (
	NoticeSessionStarted NoticeKind = iota
	NoticeTaskStarted
	NoticePinchStart
	NoticePinchEnd
	NoticeRepCompleted
	NoticeTaskCompleted
	NoticeSessionCompleted
	NoticeSaveFailed
)

var noticeKindNames = [...]string{
	"session_started",
	"task_started",
	"pinch_start",
	"pinch_end",
	"rep_completed",
	"task_completed",
	"session_completed",
	"save_failed",
}

func (k NoticeKind) String() string {
	if k < 0 || int(k) >= len(noticeKindNames) {
		return fmt.Sprintf("notice(%d)", int(k))
	}
	return noticeKindNames[k]
}

// MarshalText encodes the kind by name.
func (k NoticeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Notice reports progress to whoever drives the orchestrator. Pinch edges
// are observational and never gate a task.
type Notice struct {
	Kind      NoticeKind
	At        time.Time
	TaskIndex int
	Task      string
	Side      hand.Side
	Channel   hand.Finger
	Rep       int
	Strength  float64
	Row       *Row
}
