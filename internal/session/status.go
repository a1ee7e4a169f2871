package session

import (
	"fmt"
	"time"
)

// Status is a snapshot of orchestrator progress for display.
type Status struct {
	State       State         `json:"state"`
	TaskIndex   int           `json:"task_index"`
	TaskCount   int           `json:"task_count"`
	Task        string        `json:"task,omitempty"`
	Instruction string        `json:"instruction,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	Rep         int           `json:"rep"`
	Reps        int           `json:"reps"`
	Phase       Phase         `json:"phase"`
	Held        time.Duration `json:"held_ns"`
	Hold        time.Duration `json:"hold_ns"`
	Progress    float64       `json:"progress"`
	Message     string        `json:"message,omitempty"`
}

// Status returns the current progress.
func (o *Orchestrator) Status() Status {
	st := Status{
		State:     o.state,
		TaskIndex: -1,
		TaskCount: len(o.tasks),
	}

	switch o.state {
	case StateTaskActive:
		t := o.tasks[o.index]
		st.TaskIndex = o.index
		st.Task = t.Name()
		st.Instruction = t.Instruction
		st.Kind = t.Kind.String()
		st.Rep = o.prog.rep
		st.Reps = t.RepCount()
		st.Phase = o.prog.phase
		st.Held = o.prog.held
		st.Hold = t.Hold
		switch {
		case t.Hold > 0:
			st.Progress = min(1, o.prog.held.Seconds()/t.Hold.Seconds())
		case o.prog.phase == PhaseHolding:
			st.Progress = 1
		}
		st.Message = st.ProgressText()
	case StateSessionComplete, StateSaveFailed:
		if o.report != nil {
			st.Message = o.report.String()
		}
	}
	return st
}

// ProgressText renders the hold progress of the active task.
func (s Status) ProgressText() string {
	switch s.Kind {
	case RepeatedPinches.String():
		return fmt.Sprintf("Pinches: %d / %d", s.Rep, s.Reps)
	default:
		text := fmt.Sprintf("Hold: %.1fs / %.1fs", s.Held.Seconds(), s.Hold.Seconds())
		if s.Reps > 1 {
			text += fmt.Sprintf(" (rep %d / %d)", s.Rep+1, s.Reps)
		}
		return text
	}
}
