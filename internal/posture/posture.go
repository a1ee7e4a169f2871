// Package posture classifies hand postures (mudras) from fingertip
// proximity to the thumb, normalized for hand size.
package posture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/hand"
)

var (
	// ErrInvalidConfig is returned when classifier tuning is unusable.
	ErrInvalidConfig = errors.New("invalid posture config")
	// ErrNoSamples is returned when calibration has nothing to average.
	ErrNoSamples = errors.New("no calibration samples")
)

// Label is a recognized posture.
type Label int

const (
	None Label = iota
	Surya
	Prithvi
	Apan
	Gyan
)

var labelNames = [...]string{"none", "surya", "prithvi", "apan", "gyan"}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return labelNames[l]
}

// MarshalText encodes the label by name.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLabel parses a posture name such as "surya".
func ParseLabel(v string) (Label, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range labelNames {
		if v == name {
			return Label(i), nil
		}
	}
	return None, fmt.Errorf("unknown posture %q", v)
}

// Config holds per-digit closeness thresholds in meters, measured at the
// reference hand length.
type Config struct {
	AutoNormalize       bool
	ReferenceHandLength float64
	Thresholds          [hand.NumFingers]float64 // indexed by finger; the thumb slot is unused
}

// DegenerateHandLength is the measured hand length below which no scaling
// is applied.
const DegenerateHandLength = 0.001

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		AutoNormalize:       true,
		ReferenceHandLength: 0.10,
		Thresholds: [hand.NumFingers]float64{
			hand.Index:  0.04,
			hand.Middle: 0.035,
			hand.Ring:   0.03,
			hand.Pinky:  0.04,
		},
	}
}

// Validate checks that every threshold and the reference length are positive.
func (c Config) Validate() error {
	var errs []error
	if c.ReferenceHandLength <= 0 {
		errs = append(errs, fmt.Errorf("%w: reference hand length must be positive", ErrInvalidConfig))
	}
	for f := hand.Index; f <= hand.Pinky; f++ {
		if c.Thresholds[f] <= 0 {
			errs = append(errs, fmt.Errorf("%w: thumb-%s threshold must be positive", ErrInvalidConfig, f))
		}
	}
	return errors.Join(errs...)
}

// Measurement is the geometry behind one classification.
type Measurement struct {
	Valid      bool                     `json:"valid"`
	HandLength float64                  `json:"hand_length"`
	Multiplier float64                  `json:"multiplier"`
	Distances  [hand.NumFingers]float64 `json:"distances"`
	Thresholds [hand.NumFingers]float64 `json:"thresholds"`
	Close      [hand.NumFingers]bool    `json:"close"`
	Label      Label                    `json:"label"`
}

// Measure computes thumb-to-tip distances, the scale multiplier and the
// closeness of each digit. It is invalid when a fingertip is missing.
func Measure(cfg Config, s *hand.Skeleton) Measurement {
	m := Measurement{Multiplier: 1}

	thumb, ok := s.Joint(hand.ThumbTip)
	if !ok {
		return m
	}
	for f := hand.Index; f <= hand.Pinky; f++ {
		tip, ok := s.Joint(hand.TipOf(f))
		if !ok {
			return Measurement{Multiplier: 1}
		}
		m.Distances[f] = hand.Distance(thumb, tip)
	}

	m.HandLength = s.HandLength()
	if cfg.AutoNormalize && m.HandLength > DegenerateHandLength && cfg.ReferenceHandLength > 0 {
		m.Multiplier = m.HandLength / cfg.ReferenceHandLength
	}

	for f := hand.Index; f <= hand.Pinky; f++ {
		m.Thresholds[f] = cfg.Thresholds[f] * m.Multiplier
		m.Close[f] = m.Distances[f] <= m.Thresholds[f]
	}
	m.Valid = true
	m.Label = decide(m.Close)
	return m
}

// decide applies the priority order: two-digit closures before single
// digits, single digits only when the competing digits are open.
func decide(near [hand.NumFingers]bool) Label {
	index, middle, ring := near[hand.Index], near[hand.Middle], near[hand.Ring]
	switch {
	case middle && ring:
		return Apan
	case ring && !middle && !index:
		return Surya
	case middle && !ring && !index:
		return Prithvi
	case index && !middle && !ring:
		return Gyan
	default:
		return None
	}
}

// Classify is the stateless classification of a skeleton.
func Classify(cfg Config, s *hand.Skeleton) Label {
	return Measure(cfg, s).Label
}
