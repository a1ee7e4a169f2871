package posture

import (
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/hand"
)

// Calibration is the result of averaging recorded hand lengths.
type Calibration struct {
	ReferenceHandLength float64 `json:"reference_hand_length"`
	StdDev              float64 `json:"std_dev"`
	Samples             int     `json:"samples"`
	Skipped             int     `json:"skipped"`
}

// Calibrate averages the wrist-to-middle-tip length of the given skeletons
// into a reference hand length. Skeletons missing either joint, or with a
// degenerate length, are skipped.
func Calibrate(samples []hand.Skeleton) (Calibration, error) {
	if len(samples) == 0 {
		return Calibration{}, ErrNoSamples
	}

	var lengths []float64
	for i := range samples {
		l := samples[i].HandLength()
		if l <= DegenerateHandLength {
			continue
		}
		lengths = append(lengths, l)
	}
	if len(lengths) == 0 {
		return Calibration{}, fmt.Errorf("%w: all %d samples lack a usable hand length", ErrNoSamples, len(samples))
	}

	var sum float64
	for _, l := range lengths {
		sum += l
	}
	mean := sum / float64(len(lengths))

	var sq float64
	for _, l := range lengths {
		sq += (l - mean) * (l - mean)
	}

	return Calibration{
		ReferenceHandLength: mean,
		StdDev:              math.Sqrt(sq / float64(len(lengths))),
		Samples:             len(lengths),
		Skipped:             len(samples) - len(lengths),
	}, nil
}

// Apply returns cfg with the calibrated reference length.
func (c Calibration) Apply(cfg Config) Config {
	if c.ReferenceHandLength > 0 {
		cfg.ReferenceHandLength = c.ReferenceHandLength
	}
	return cfg
}
