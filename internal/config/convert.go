package config

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pinch"
	"github.com/ayusman/mudra/internal/posture"
	"github.com/ayusman/mudra/internal/session"
)

// PinchConfig returns the engine tuning.
func (c *Config) PinchConfig() (pinch.Config, error) {
	smoothing, err := pinch.ParseSmoothing(c.Pinch.Smoothing)
	if err != nil {
		return pinch.Config{}, err
	}
	return pinch.Config{
		StartThreshold:     c.Pinch.StartThreshold,
		EndThreshold:       c.Pinch.EndThreshold,
		Smoothing:          smoothing,
		SmoothingFactor:    c.Pinch.SmoothingFactor,
		TimeConstant:       seconds(c.Pinch.SmoothingTimeConstant),
		MicroMovementDelta: c.Pinch.MicroMovementDelta,
		IncludeThumb:       c.Pinch.IncludeThumb,
	}, nil
}

// PostureConfig returns the classifier tuning.
func (c *Config) PostureConfig() posture.Config {
	var th [hand.NumFingers]float64
	th[hand.Index] = c.Posture.ThumbIndexThreshold
	th[hand.Middle] = c.Posture.ThumbMiddleThreshold
	th[hand.Ring] = c.Posture.ThumbRingThreshold
	th[hand.Pinky] = c.Posture.ThumbPinkyThreshold
	return posture.Config{
		AutoNormalize:       c.Posture.AutoNormalize,
		ReferenceHandLength: c.Posture.ReferenceHandLength,
		Thresholds:          th,
	}
}

// UsesDistanceStrength reports whether strengths are derived from distances.
func (c *Config) UsesDistanceStrength() bool {
	return c.Pinch.StrengthSource == StrengthDistance
}

// Tasks converts the configured script.
func (c *Config) Tasks() ([]session.Task, error) {
	out := make([]session.Task, 0, len(c.Session.Tasks))
	for i, tc := range c.Session.Tasks {
		t, err := tc.Task()
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Task converts one configured task.
func (tc TaskConfig) Task() (session.Task, error) {
	kind, err := session.ParseTaskKind(tc.Kind)
	if err != nil {
		return session.Task{}, err
	}
	sel, err := session.ParseHandSelector(tc.Hand)
	if err != nil {
		return session.Task{}, err
	}
	t := session.Task{
		Label:          tc.Label,
		Instruction:    tc.Instruction,
		Kind:           kind,
		Channel:        hand.NoFinger,
		Hand:           sel,
		TargetStrength: tc.TargetStrength,
		Hold:           seconds(tc.HoldSeconds),
		Reps:           tc.Reps,
	}
	if kind == session.PostureHold {
		if t.Posture, err = posture.ParseLabel(tc.Posture); err != nil {
			return session.Task{}, err
		}
	} else {
		if t.Channel, err = hand.ParseFinger(tc.Channel); err != nil {
			return session.Task{}, err
		}
	}
	if err := t.Validate(); err != nil {
		return session.Task{}, err
	}
	return t, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
