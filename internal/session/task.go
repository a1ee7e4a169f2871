// Package session sequences scripted rehabilitation tasks over the pinch
// and posture outputs, records per-session metrics and compares them with
// the previously saved session.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/posture"
)

var (
	// ErrNoRecord is returned by a RecordStore that has nothing saved.
	ErrNoRecord = errors.New("no saved session")
	// ErrPersist wraps storage failures at session end.
	ErrPersist = errors.New("failed to persist session")
	// ErrNotActive is returned when an operation needs a state the
	// orchestrator is not in.
	ErrNotActive = errors.New("session not in required state")
	// ErrInvalidTask is returned for a task that cannot be run.
	ErrInvalidTask = errors.New("invalid task")
)

// TaskKind selects how a task is judged.
type TaskKind int

const (
	// HoldAtTarget requires the target channel to stay at or above the
	// target strength for the hold duration without interruption.
	HoldAtTarget TaskKind = iota
	// RepeatedPinches counts pinch start/end cycles on the target channel.
	RepeatedPinches
	// PostureHold requires the target posture to be held for the duration.
	PostureHold
)

var taskKindNames = [...]string{"hold_at_target", "repeated_pinches", "posture_hold"}

func (k TaskKind) String() string {
	if k < 0 || int(k) >= len(taskKindNames) {
		return fmt.Sprintf("task_kind(%d)", int(k))
	}
	return taskKindNames[k]
}

// MarshalText encodes the kind by name.
func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseTaskKind parses a kind name such as "hold_at_target".
func ParseTaskKind(v string) (TaskKind, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range taskKindNames {
		if v == name {
			return TaskKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidTask, v)
}

// HandSelector picks which hands a task watches.
type HandSelector int

const (
	EitherHand HandSelector = iota
	LeftHand
	RightHand
)

func (h HandSelector) String() string {
	switch h {
	case LeftHand:
		return "left"
	case RightHand:
		return "right"
	default:
		return "either"
	}
}

// MarshalText encodes the selector by name.
func (h HandSelector) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// ParseHandSelector parses "either", "left" or "right". Empty means either.
func ParseHandSelector(v string) (HandSelector, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "either", "any", "both":
		return EitherHand, nil
	case "left":
		return LeftHand, nil
	case "right":
		return RightHand, nil
	default:
		return 0, fmt.Errorf("%w: unknown hand %q", ErrInvalidTask, v)
	}
}

// Sides returns the hand sides the selector covers.
func (h HandSelector) Sides() []hand.Side {
	switch h {
	case LeftHand:
		return []hand.Side{hand.Left}
	case RightHand:
		return []hand.Side{hand.Right}
	default:
		return []hand.Side{hand.Left, hand.Right}
	}
}

// Task is one scripted exercise step.
type Task struct {
	Label          string
	Instruction    string
	Kind           TaskKind
	Channel        hand.Finger
	Hand           HandSelector
	TargetStrength float64
	Hold           time.Duration
	Reps           int
	Posture        posture.Label
}

// RepCount returns the number of repetitions needed, at least one.
func (t Task) RepCount() int {
	if t.Reps < 1 {
		return 1
	}
	return t.Reps
}

// Validate checks that the task can be run.
func (t Task) Validate() error {
	var errs []error
	if t.TargetStrength < 0 || t.TargetStrength > 1 {
		errs = append(errs, fmt.Errorf("target strength %v outside [0,1]", t.TargetStrength))
	}
	if t.Hold < 0 {
		errs = append(errs, errors.New("negative hold duration"))
	}
	if t.Reps < 0 {
		errs = append(errs, errors.New("negative reps"))
	}
	switch t.Kind {
	case HoldAtTarget, RepeatedPinches:
		if !t.Channel.Valid() {
			errs = append(errs, fmt.Errorf("channel %v out of range", t.Channel))
		}
	case PostureHold:
		if t.Posture == posture.None {
			errs = append(errs, errors.New("posture hold needs a target posture"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %d", int(t.Kind)))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %q: %w", ErrInvalidTask, t.Label, errors.Join(errs...))
}

// Name returns the label, or a generated one when empty.
func (t Task) Name() string {
	if t.Label != "" {
		return t.Label
	}
	if t.Kind == PostureHold {
		return fmt.Sprintf("%s %s", t.Kind, t.Posture)
	}
	return fmt.Sprintf("%s %s", t.Kind, t.Channel)
}
