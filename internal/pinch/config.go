// Package pinch converts raw per-finger pinch strengths into stable
// start, hold, end and micro-movement events.
package pinch

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is returned when an engine configuration is inconsistent.
	ErrInvalidConfig = errors.New("invalid pinch config")
	// ErrChannelOutOfRange is returned for finger indices outside the table.
	ErrChannelOutOfRange = errors.New("pinch channel out of range")
	// ErrUnknownSide is returned for hand sides other than left and right.
	ErrUnknownSide = errors.New("unknown hand side")
)

// Smoothing selects the low-pass filter applied to raw strengths.
type Smoothing string

const (
	// SmoothingNone tracks the raw value exactly.
	SmoothingNone Smoothing = "none"
	// SmoothingFactor blends a constant fraction toward the raw value each
	// frame, so the response depends on frame rate.
	SmoothingFactor Smoothing = "factor"
	// SmoothingTimeConstant blends by 1 - exp(-dt/tau), so the response is
	// independent of frame rate.
	SmoothingTimeConstant Smoothing = "time_constant"
)

// ParseSmoothing parses a smoothing policy name.
func ParseSmoothing(v string) (Smoothing, error) {
	switch s := Smoothing(v); s {
	case SmoothingNone, SmoothingFactor, SmoothingTimeConstant:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown smoothing %q", ErrInvalidConfig, v)
	}
}

// Config holds the engine tuning.
type Config struct {
	StartThreshold     float64
	EndThreshold       float64
	Smoothing          Smoothing
	SmoothingFactor    float64       // blend weight per frame, used by SmoothingFactor
	TimeConstant       time.Duration // tau, used by SmoothingTimeConstant
	MicroMovementDelta float64
	IncludeThumb       bool // track the thumb as its own channel
}

// DefaultConfig returns the tuning used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		StartThreshold:     0.6,
		EndThreshold:       0.45,
		Smoothing:          SmoothingTimeConstant,
		SmoothingFactor:    0.15,
		TimeConstant:       150 * time.Millisecond,
		MicroMovementDelta: 0.01,
		IncludeThumb:       true,
	}
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	if c.StartThreshold <= 0 || c.StartThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: start threshold %v outside (0,1]", ErrInvalidConfig, c.StartThreshold))
	}
	if c.EndThreshold < 0 || c.EndThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: end threshold %v outside [0,1]", ErrInvalidConfig, c.EndThreshold))
	}
	if c.EndThreshold >= c.StartThreshold {
		errs = append(errs, fmt.Errorf("%w: end threshold %v must be below start threshold %v", ErrInvalidConfig, c.EndThreshold, c.StartThreshold))
	}
	switch c.Smoothing {
	case SmoothingNone:
	case SmoothingFactor:
		if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
			errs = append(errs, fmt.Errorf("%w: smoothing factor %v outside (0,1]", ErrInvalidConfig, c.SmoothingFactor))
		}
	case SmoothingTimeConstant:
		if c.TimeConstant <= 0 {
			errs = append(errs, fmt.Errorf("%w: smoothing time constant must be positive", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown smoothing %q", ErrInvalidConfig, c.Smoothing))
	}
	if c.MicroMovementDelta <= 0 {
		errs = append(errs, fmt.Errorf("%w: micro-movement delta must be positive", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
