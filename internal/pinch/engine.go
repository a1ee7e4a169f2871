package pinch

import (
	"fmt"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

// channel is the per (hand, finger) filter and latch.
type channel struct {
	smoothed     float64
	lastReported float64
	pinched      bool
	seen         bool
}

// Engine holds one channel per hand and finger. It is not safe for
// concurrent use; callers drive it from a single tick loop.
type Engine struct {
	cfg   Config
	table [hand.NumSides][hand.NumFingers]channel
}

// NewEngine creates an engine after validating cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Channels lists the fingers the engine tracks, in table order.
func (e *Engine) Channels() []hand.Finger {
	out := make([]hand.Finger, 0, hand.NumFingers)
	for f := hand.Thumb; f <= hand.Pinky; f++ {
		if e.active(f) {
			out = append(out, f)
		}
	}
	return out
}

func (e *Engine) active(f hand.Finger) bool {
	return f != hand.Thumb || e.cfg.IncludeThumb
}

// Observe folds one frame of raw strengths for a hand into the table and
// returns the events it produced. raw is indexed by finger; a short slice
// reads as zeros for the missing fingers. dt is the time since the previous
// frame and only matters for SmoothingTimeConstant.
//
// When tracked is false every channel drops to zero and held pinches end.
func (e *Engine) Observe(side hand.Side, raw []float64, tracked bool, dt time.Duration) ([]Event, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSide, int(side))
	}
	if len(raw) > hand.NumFingers {
		return nil, fmt.Errorf("%w: %d values for %d fingers", ErrChannelOutOfRange, len(raw), hand.NumFingers)
	}

	var events []Event
	row := &e.table[side]

	if !tracked {
		for f := range row {
			ch := &row[f]
			ch.smoothed = 0
			ch.lastReported = 0
			if ch.pinched {
				ch.pinched = false
				events = append(events, Event{Kind: KindEnd, Side: side, Finger: hand.Finger(f), Strength: 0})
			}
		}
		return events, nil
	}

	alpha := e.blend(dt)
	for f := hand.Thumb; f <= hand.Pinky; f++ {
		if !e.active(f) {
			continue
		}
		var v float64
		if int(f) < len(raw) {
			v = hand.Clamp01(raw[f])
		}
		events = e.step(&row[f], side, f, v, alpha, events)
	}
	return events, nil
}

// ObserveReading is Observe for a hand.Reading.
func (e *Engine) ObserveReading(side hand.Side, r *hand.Reading, dt time.Duration) ([]Event, error) {
	if r == nil {
		return e.Observe(side, nil, false, dt)
	}
	return e.Observe(side, r.Strength[:], r.Tracked, dt)
}

// ObserveFrame observes both hands of a frame, left first.
func (e *Engine) ObserveFrame(frame *hand.Frame) ([]Event, error) {
	var events []Event
	for _, side := range hand.Sides {
		ev, err := e.ObserveReading(side, frame.Hand(side), frame.Elapsed)
		if err != nil {
			return nil, err
		}
		events = append(events, ev...)
	}
	return events, nil
}

func (e *Engine) step(ch *channel, side hand.Side, f hand.Finger, raw, alpha float64, events []Event) []Event {
	if !ch.seen {
		ch.seen = true
		ch.smoothed = raw
		ch.lastReported = raw
	} else {
		ch.smoothed = hand.Clamp01(ch.smoothed + alpha*(raw-ch.smoothed))
	}

	if math.Abs(ch.smoothed-ch.lastReported) >= e.cfg.MicroMovementDelta {
		ch.lastReported = ch.smoothed
		events = append(events, Event{Kind: KindMicroMovement, Side: side, Finger: f, Strength: ch.smoothed})
	}

	switch {
	case !ch.pinched && ch.smoothed >= e.cfg.StartThreshold:
		ch.pinched = true
		events = append(events, Event{Kind: KindStart, Side: side, Finger: f, Strength: ch.smoothed})
	case ch.pinched && ch.smoothed < e.cfg.EndThreshold:
		ch.pinched = false
		events = append(events, Event{Kind: KindEnd, Side: side, Finger: f, Strength: ch.smoothed})
	case ch.pinched:
		events = append(events, Event{Kind: KindHold, Side: side, Finger: f, Strength: ch.smoothed})
	}
	return events
}

// blend returns the weight given to the raw sample this frame.
func (e *Engine) blend(dt time.Duration) float64 {
	switch e.cfg.Smoothing {
	case SmoothingFactor:
		return e.cfg.SmoothingFactor
	case SmoothingTimeConstant:
		if dt <= 0 {
			return 0
		}
		return 1 - math.Exp(-dt.Seconds()/e.cfg.TimeConstant.Seconds())
	default:
		return 1
	}
}

// Strength returns the smoothed strength of a channel. Channels never
// observed, and a disabled thumb, read 0.
func (e *Engine) Strength(side hand.Side, f hand.Finger) (float64, error) {
	ch, err := e.lookup(side, f)
	if err != nil {
		return 0, err
	}
	return ch.smoothed, nil
}

// Pinched reports the hysteresis latch of a channel.
func (e *Engine) Pinched(side hand.Side, f hand.Finger) (bool, error) {
	ch, err := e.lookup(side, f)
	if err != nil {
		return false, err
	}
	return ch.pinched, nil
}

// Strengths returns every finger's smoothed strength for a hand.
func (e *Engine) Strengths(side hand.Side) [hand.NumFingers]float64 {
	var out [hand.NumFingers]float64
	if !side.Valid() {
		return out
	}
	for f, ch := range e.table[side] {
		out[f] = ch.smoothed
	}
	return out
}

func (e *Engine) lookup(side hand.Side, f hand.Finger) (channel, error) {
	if !side.Valid() {
		return channel{}, fmt.Errorf("%w: %d", ErrUnknownSide, int(side))
	}
	if !f.Valid() {
		return channel{}, fmt.Errorf("%w: %d", ErrChannelOutOfRange, int(f))
	}
	return e.table[side][f], nil
}

// Reset clears every channel back to its unobserved state.
func (e *Engine) Reset() {
	e.table = [hand.NumSides][hand.NumFingers]channel{}
}
