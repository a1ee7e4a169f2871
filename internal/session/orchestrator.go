package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/posture"
)

// State is the orchestrator state.
type State int

const (
	StateIdle State = iota
	StateTaskActive
	// StateTaskComplete is transient: the orchestrator passes through it
	// within the tick that finishes a task.
	StateTaskComplete
	StateSessionComplete
	// StateSaveFailed means the session finished but could not be saved.
	StateSaveFailed
)

var stateNames = [...]string{"idle", "task_active", "task_complete", "session_complete", "save_failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Phase is the sub-state of the active task.
type Phase int

const (
	// PhaseWaiting waits for the target strength, pinch or posture.
	PhaseWaiting Phase = iota
	// PhaseHolding accumulates hold time.
	PhaseHolding
	// PhaseRelease waits for the user to let go before the next rep.
	PhaseRelease
)

func (p Phase) String() string {
	switch p {
	case PhaseHolding:
		return "holding"
	case PhaseRelease:
		return "release"
	default:
		return "waiting"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// StrengthReader exposes the smoothed pinch strengths and latches.
type StrengthReader interface {
	Strength(side hand.Side, f hand.Finger) (float64, error)
	Pinched(side hand.Side, f hand.Finger) (bool, error)
}

// PostureReader exposes the current posture label per hand.
type PostureReader interface {
	Label(side hand.Side) posture.Label
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the time source used for record and row timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets the generator used for record IDs.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

type progress struct {
	rep     int
	held    time.Duration
	phase   Phase
	repSide hand.Side
	peak    float64
}

// Orchestrator runs one task sequence at a time. It is driven by Tick and
// is not safe for concurrent use.
type Orchestrator struct {
	tasks     []Task
	strengths StrengthReader
	postures  PostureReader
	store     RecordStore
	now       func() time.Time
	newID     func() string

	state    State
	index    int
	prog     progress
	pinched  [hand.NumSides]bool
	current  *Record
	previous *Record
	report   *Report
	loadErr  error
	saveErr  error
}

// New creates an orchestrator over tasks. Every task is validated.
func New(tasks []Task, strengths StrengthReader, postures PostureReader, store RecordStore, opts ...Option) (*Orchestrator, error) {
	if strengths == nil || postures == nil {
		return nil, errors.New("session: strength and posture readers are required")
	}
	if store == nil {
		return nil, errors.New("session: record store is required")
	}
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
	}

	o := &Orchestrator{
		tasks:     append([]Task(nil), tasks...),
		strengths: strengths,
		postures:  postures,
		store:     store,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Tasks returns a copy of the task sequence.
func (o *Orchestrator) Tasks() []Task {
	return append([]Task(nil), o.tasks...)
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// StartSession discards any session in progress, loads the previous
// record and begins the first task. A missing or unreadable previous
// record counts as no previous session; the load error is kept for
// LoadError.
func (o *Orchestrator) StartSession(ctx context.Context) []Notice {
	now := o.now()

	o.previous = nil
	o.loadErr = nil
	o.saveErr = nil
	o.report = nil
	prev, err := o.store.LoadPrevious(ctx)
	switch {
	case err == nil:
		o.previous = prev
	case !errors.Is(err, ErrNoRecord):
		o.loadErr = err
	}

	o.current = &Record{ID: o.newID(), SessionDate: now}
	o.index = 0
	o.prog = progress{}
	o.pinched = [hand.NumSides]bool{}

	notices := []Notice{{Kind: NoticeSessionStarted, At: now, TaskIndex: -1, Channel: hand.NoFinger}}

	if len(o.tasks) == 0 {
		o.state = StateSessionComplete
		o.report = &Report{Empty: true}
		return append(notices, Notice{Kind: NoticeSessionCompleted, At: now, TaskIndex: -1, Channel: hand.NoFinger})
	}

	o.state = StateTaskActive
	return append(notices, o.taskNotice(NoticeTaskStarted, now))
}

// Tick advances the active task by one frame of dt. It does nothing
// unless a task is active. The only error is a failure to save the
// finished session, which wraps ErrPersist.
func (o *Orchestrator) Tick(ctx context.Context, dt time.Duration) ([]Notice, error) {
	if o.state != StateTaskActive {
		return nil, nil
	}
	if dt < 0 {
		dt = 0
	}

	now := o.now()
	var notices []Notice

	o.recordPeaks()

	task := &o.tasks[o.index]
	latch := o.latches(task)
	notices = o.edges(task, latch, now, notices)

	var done bool
	switch task.Kind {
	case HoldAtTarget:
		done, notices = o.stepHold(task, dt, now, notices)
	case RepeatedPinches:
		done, notices = o.stepPinches(task, latch, dt, now, notices)
	case PostureHold:
		done, notices = o.stepPosture(task, dt, now, notices)
	}
	o.pinched = latch

	if !done {
		return notices, nil
	}

	o.state = StateTaskComplete
	notices = append(notices, o.taskNotice(NoticeTaskCompleted, now))
	notices = o.releaseEdges(task, now, notices)

	o.index++
	o.prog = progress{}
	if o.index < len(o.tasks) {
		o.state = StateTaskActive
		return append(notices, o.taskNotice(NoticeTaskStarted, now)), nil
	}
	return o.finish(ctx, now, notices)
}

func (o *Orchestrator) finish(ctx context.Context, now time.Time, notices []Notice) ([]Notice, error) {
	rep := Compare(o.previous, o.current)
	o.report = &rep

	if err := o.store.SavePrevious(ctx, o.current); err != nil {
		o.state = StateSaveFailed
		o.saveErr = err
		notices = append(notices, Notice{Kind: NoticeSaveFailed, At: now, TaskIndex: -1, Channel: hand.NoFinger})
		return notices, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	o.state = StateSessionComplete
	return append(notices, Notice{Kind: NoticeSessionCompleted, At: now, TaskIndex: -1, Channel: hand.NoFinger}), nil
}

// RetrySave attempts to save a session whose save failed.
func (o *Orchestrator) RetrySave(ctx context.Context) error {
	if o.state != StateSaveFailed {
		return fmt.Errorf("%w: retry save in state %s", ErrNotActive, o.state)
	}
	if err := o.store.SavePrevious(ctx, o.current); err != nil {
		o.saveErr = err
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	o.saveErr = nil
	o.state = StateSessionComplete
	return nil
}

// recordPeaks folds the best strength across both hands into the record.
func (o *Orchestrator) recordPeaks() {
	var best [hand.NumFingers]float64
	for f := hand.Thumb; f <= hand.Pinky; f++ {
		for _, side := range hand.Sides {
			if s, err := o.strengths.Strength(side, f); err == nil && s > best[f] {
				best[f] = s
			}
		}
	}
	o.current.Observe(best)
}

// latches reads the engine latch of the task channel for each hand the
// task watches.
func (o *Orchestrator) latches(task *Task) [hand.NumSides]bool {
	var out [hand.NumSides]bool
	if task.Kind == PostureHold || !task.Channel.Valid() {
		return out
	}
	for _, side := range task.Hand.Sides() {
		if p, err := o.strengths.Pinched(side, task.Channel); err == nil {
			out[side] = p
		}
	}
	return out
}

func (o *Orchestrator) edges(task *Task, latch [hand.NumSides]bool, now time.Time, notices []Notice) []Notice {
	for _, side := range hand.Sides {
		switch {
		case latch[side] && !o.pinched[side]:
			notices = append(notices, o.pinchNotice(NoticePinchStart, side, task, now))
		case !latch[side] && o.pinched[side]:
			notices = append(notices, o.pinchNotice(NoticePinchEnd, side, task, now))
		}
	}
	return notices
}

// releaseEdges closes any open pinch highlight when a task ends.
func (o *Orchestrator) releaseEdges(task *Task, now time.Time, notices []Notice) []Notice {
	for _, side := range hand.Sides {
		if o.pinched[side] {
			notices = append(notices, o.pinchNotice(NoticePinchEnd, side, task, now))
		}
	}
	o.pinched = [hand.NumSides]bool{}
	return notices
}

// targetStrength is the best strength of the task channel across the
// watched hands.
func (o *Orchestrator) targetStrength(task *Task) float64 {
	var best float64
	for _, side := range task.Hand.Sides() {
		if s, err := o.strengths.Strength(side, task.Channel); err == nil && s > best {
			best = s
		}
	}
	return best
}

// stepHold requires the strength to stay at or above target for the whole
// hold; any frame below target resets the accumulated time.
func (o *Orchestrator) stepHold(task *Task, dt time.Duration, now time.Time, notices []Notice) (bool, []Notice) {
	p := &o.prog
	s := o.targetStrength(task)

	if p.phase == PhaseRelease {
		if s >= task.TargetStrength {
			return false, notices
		}
		p.phase = PhaseWaiting
	}
	if s < task.TargetStrength {
		p.held = 0
		p.phase = PhaseWaiting
		return false, notices
	}

	p.phase = PhaseHolding
	p.held += dt
	if p.held < task.Hold {
		return false, notices
	}

	notices = o.completeRep(task, RowPinchRep, task.Channel, p.held, s, now, notices)
	return p.rep >= task.RepCount(), notices
}

// stepPinches counts a rep for each latch start followed by an end, when
// the peak reached the target and the pinch lasted at least the hold.
func (o *Orchestrator) stepPinches(task *Task, latch [hand.NumSides]bool, dt time.Duration, now time.Time, notices []Notice) (bool, []Notice) {
	p := &o.prog

	if p.phase != PhaseHolding {
		for _, side := range task.Hand.Sides() {
			if latch[side] && !o.pinched[side] {
				p.phase = PhaseHolding
				p.repSide = side
				p.held = 0
				p.peak, _ = o.strengths.Strength(side, task.Channel)
				break
			}
		}
		return false, notices
	}

	p.held += dt
	if s, err := o.strengths.Strength(p.repSide, task.Channel); err == nil && s > p.peak {
		p.peak = s
	}
	if latch[p.repSide] {
		return false, notices
	}

	if p.peak < task.TargetStrength || p.held < task.Hold {
		p.phase = PhaseWaiting
		p.held = 0
		p.peak = 0
		return false, notices
	}

	notices = o.completeRep(task, RowPinchRep, task.Channel, p.held, p.peak, now, notices)
	p.phase = PhaseWaiting
	return p.rep >= task.RepCount(), notices
}

// stepPosture waits for the target label on a watched hand, then needs it
// held for the duration. Losing the label restarts the wait.
func (o *Orchestrator) stepPosture(task *Task, dt time.Duration, now time.Time, notices []Notice) (bool, []Notice) {
	p := &o.prog

	present := false
	for _, side := range task.Hand.Sides() {
		if o.postures.Label(side) == task.Posture {
			present = true
			break
		}
	}

	if p.phase == PhaseRelease {
		if present {
			return false, notices
		}
		p.phase = PhaseWaiting
	}
	if !present {
		p.held = 0
		p.phase = PhaseWaiting
		return false, notices
	}

	if p.phase == PhaseWaiting {
		p.phase = PhaseHolding
		p.held = 0
	} else {
		p.held += dt
	}
	if p.held < task.Hold {
		return false, notices
	}

	notices = o.completeRep(task, RowPostureHold, hand.NoFinger, p.held, 1, now, notices)
	return p.rep >= task.RepCount(), notices
}

func (o *Orchestrator) completeRep(task *Task, kind RowKind, ch hand.Finger, held time.Duration, strength float64, now time.Time, notices []Notice) []Notice {
	p := &o.prog
	p.rep++
	row := Row{
		Timestamp: now,
		TaskLabel: task.Name(),
		RepIndex:  p.rep,
		Channel:   ch,
		Kind:      kind,
		Duration:  held,
		Strength:  hand.Clamp01(strength),
	}
	o.current.Rows = append(o.current.Rows, row)

	p.held = 0
	p.peak = 0
	p.phase = PhaseRelease

	n := o.taskNotice(NoticeRepCompleted, now)
	n.Rep = p.rep
	n.Strength = row.Strength
	n.Row = &row
	return append(notices, n)
}

func (o *Orchestrator) taskNotice(kind NoticeKind, now time.Time) Notice {
	t := o.tasks[o.index]
	return Notice{
		Kind:      kind,
		At:        now,
		TaskIndex: o.index,
		Task:      t.Name(),
		Channel:   t.Channel,
		Rep:       o.prog.rep,
	}
}

func (o *Orchestrator) pinchNotice(kind NoticeKind, side hand.Side, task *Task, now time.Time) Notice {
	s, _ := o.strengths.Strength(side, task.Channel)
	return Notice{
		Kind:      kind,
		At:        now,
		TaskIndex: o.index,
		Task:      task.Name(),
		Side:      side,
		Channel:   task.Channel,
		Strength:  s,
	}
}

// Report returns the comparison of the finished session.
func (o *Orchestrator) Report() (Report, error) {
	if o.report == nil {
		return Report{}, fmt.Errorf("%w: no finished session", ErrNotActive)
	}
	return *o.report, nil
}

// Record returns a copy of the current or most recently finished session.
func (o *Orchestrator) Record() *Record {
	return o.current.Clone()
}

// Previous returns a copy of the record loaded at session start.
func (o *Orchestrator) Previous() *Record {
	return o.previous.Clone()
}

// LoadError returns the error, other than ErrNoRecord, hit while loading
// the previous record.
func (o *Orchestrator) LoadError() error {
	return o.loadErr
}

// SaveError returns the last save failure.
func (o *Orchestrator) SaveError() error {
	return o.saveErr
}
