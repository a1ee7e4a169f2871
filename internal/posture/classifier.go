package posture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/hand"
)

type handState struct {
	current  Label
	previous Label
	last     Measurement
}

// Classifier tracks the label per hand and reports when it changes.
type Classifier struct {
	cfg   Config
	hands [hand.NumSides]handState
}

// NewClassifier creates a classifier after validating cfg.
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg}, nil
}

// Config returns the classifier configuration.
func (c *Classifier) Config() Config {
	return c.cfg
}

// SetConfig replaces the thresholds after validating cfg. Per-hand labels
// are kept, so a posture still held is not reported as changed again.
func (c *Classifier) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// Classify labels one hand for this frame. changed is true only when the
// label differs from the label of the previous frame for that hand.
// Untracked readings and missing fingertips classify as None.
func (c *Classifier) Classify(side hand.Side, r *hand.Reading) (Label, bool, error) {
	if !side.Valid() {
		return None, false, fmt.Errorf("unknown hand side %d", int(side))
	}

	m := Measurement{Multiplier: 1}
	if r != nil && r.Tracked {
		m = Measure(c.cfg, &r.Skeleton)
	}

	st := &c.hands[side]
	st.previous = st.current
	st.current = m.Label
	st.last = m
	return st.current, st.current != st.previous, nil
}

// Label returns the label from the most recent frame.
func (c *Classifier) Label(side hand.Side) Label {
	if !side.Valid() {
		return None
	}
	return c.hands[side].current
}

// Measurement returns the geometry behind the most recent label.
func (c *Classifier) Measurement(side hand.Side) Measurement {
	if !side.Valid() {
		return Measurement{}
	}
	return c.hands[side].last
}

// Reset returns both hands to None.
func (c *Classifier) Reset() {
	c.hands = [hand.NumSides]handState{}
}
