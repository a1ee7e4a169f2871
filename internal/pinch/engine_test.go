package pinch

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

const frame = time.Second / 30

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func instant(c *Config) { c.Smoothing = SmoothingNone }

// observeIndex feeds v on the index channel of the left hand.
func observeIndex(t *testing.T, e *Engine, v float64, tracked bool) []Event {
	t.Helper()
	events, err := e.Observe(hand.Left, []float64{0, v}, tracked, frame)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	return events
}

func latchKinds(events []Event, f hand.Finger) []Kind {
	var kinds []Kind
	for _, ev := range events {
		if ev.Finger == f && ev.Kind != KindMicroMovement {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"end equal to start", func(c *Config) { c.EndThreshold = c.StartThreshold }, true},
		{"end above start", func(c *Config) { c.EndThreshold = 0.7 }, true},
		{"start above one", func(c *Config) { c.StartThreshold = 1.2 }, true},
		{"zero factor", func(c *Config) { c.Smoothing = SmoothingFactor; c.SmoothingFactor = 0 }, true},
		{"zero factor ignored without factor policy", func(c *Config) { c.SmoothingFactor = 0 }, false},
		{"zero time constant", func(c *Config) { c.TimeConstant = 0 }, true},
		{"unknown smoothing", func(c *Config) { c.Smoothing = "median" }, true},
		{"zero delta", func(c *Config) { c.MicroMovementDelta = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("engine refuses invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EndThreshold = 0.9
		if _, err := NewEngine(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestEngine_UntrackedThenPinch(t *testing.T) {
	e := newTestEngine(t, instant)

	for i := 0; i < 3; i++ {
		if events := observeIndex(t, e, 0, false); len(events) != 0 {
			t.Fatalf("untracked frame %d produced events: %v", i, events)
		}
	}

	want := [][]Kind{
		nil,
		{KindStart},
		{KindHold},
		{KindEnd},
	}
	for i, v := range []float64{0.2, 0.7, 0.9, 0.3} {
		got := latchKinds(observeIndex(t, e, v, true), hand.Index)
		if len(got) != len(want[i]) {
			t.Fatalf("frame %d (%.1f): expected %v, got %v", i, v, want[i], got)
		}
		for j := range got {
			if got[j] != want[i][j] {
				t.Errorf("frame %d (%.1f): expected %v, got %v", i, v, want[i], got)
			}
		}
	}
}

func TestEngine_Hysteresis(t *testing.T) {
	e := newTestEngine(t, instant)

	// Values inside the band never start a pinch.
	for _, v := range []float64{0.5, 0.59, 0.45, 0.55} {
		observeIndex(t, e, v, true)
		if p, _ := e.Pinched(hand.Left, hand.Index); p {
			t.Fatalf("pinched at %.2f before crossing start", v)
		}
	}

	observeIndex(t, e, 0.6, true)
	if p, _ := e.Pinched(hand.Left, hand.Index); !p {
		t.Fatal("expected pinch at start threshold")
	}

	// Values inside the band never end it.
	for _, v := range []float64{0.5, 0.45, 0.59} {
		observeIndex(t, e, v, true)
		if p, _ := e.Pinched(hand.Left, hand.Index); !p {
			t.Fatalf("released at %.2f before dropping below end", v)
		}
	}

	events := observeIndex(t, e, 0.44, true)
	if got := latchKinds(events, hand.Index); len(got) != 1 || got[0] != KindEnd {
		t.Errorf("expected only End, got %v", got)
	}
}

func TestEngine_TrackingLoss(t *testing.T) {
	e := newTestEngine(t, instant)
	observeIndex(t, e, 0.9, true)

	events := observeIndex(t, e, 0.9, false)
	if len(events) != 1 || events[0].Kind != KindEnd || events[0].Finger != hand.Index {
		t.Fatalf("expected a single index End, got %v", events)
	}
	if s, _ := e.Strength(hand.Left, hand.Index); s != 0 {
		t.Errorf("expected strength 0 after loss, got %f", s)
	}

	if events := observeIndex(t, e, 0.9, false); len(events) != 0 {
		t.Errorf("second untracked frame produced %v", events)
	}
}

func TestEngine_MicroMovementCount(t *testing.T) {
	// Binary fractions keep the arithmetic exact.
	delta := 1.0 / 64
	e := newTestEngine(t, func(c *Config) {
		instant(c)
		c.MicroMovementDelta = delta
	})

	count := 0
	const steps = 1024
	for i := 0; i <= steps; i++ {
		for _, ev := range observeIndex(t, e, float64(i)/steps, true) {
			if ev.Kind == KindMicroMovement {
				count++
			}
		}
	}

	if want := int(math.Floor(1 / delta)); count != want {
		t.Errorf("expected %d micro-movements, got %d", want, count)
	}
}

func TestEngine_FactorSmoothing(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Smoothing = SmoothingFactor
		c.SmoothingFactor = 0.5
	})

	observeIndex(t, e, 0, true) // seeds at the raw value
	for _, want := range []float64{0.5, 0.75, 0.875} {
		observeIndex(t, e, 1, true)
		got, _ := e.Strength(hand.Left, hand.Index)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("expected %f, got %f", want, got)
		}
	}
}

func TestEngine_TimeConstantIsFrameRateIndependent(t *testing.T) {
	run := func(fps int) float64 {
		e := newTestEngine(t, func(c *Config) { c.TimeConstant = 200 * time.Millisecond })
		dt := time.Second / time.Duration(fps)
		if _, err := e.Observe(hand.Right, []float64{0, 0}, true, dt); err != nil {
			t.Fatalf("observe: %v", err)
		}
		for i := 0; i < fps/2; i++ {
			if _, err := e.Observe(hand.Right, []float64{0, 1}, true, dt); err != nil {
				t.Fatalf("observe: %v", err)
			}
		}
		s, _ := e.Strength(hand.Right, hand.Index)
		return s
	}

	slow, fast := run(30), run(120)
	want := 1 - math.Exp(-0.5/0.2)
	if math.Abs(slow-want) > 1e-6 || math.Abs(fast-want) > 1e-6 {
		t.Errorf("expected %f at both rates, got %f (30fps) and %f (120fps)", want, slow, fast)
	}
}

func TestEngine_SmoothingNeverOvershoots(t *testing.T) {
	policies := map[string]func(*Config){
		"factor":        func(c *Config) { c.Smoothing = SmoothingFactor; c.SmoothingFactor = 0.3 },
		"time_constant": func(c *Config) { c.Smoothing = SmoothingTimeConstant },
	}

	for name, mutate := range policies {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, mutate)
			rng := rand.New(rand.NewSource(7))
			prev := -1.0
			for i := 0; i < 500; i++ {
				raw := rng.Float64()*1.4 - 0.2 // includes out-of-range values
				observeIndex(t, e, raw, true)
				s, _ := e.Strength(hand.Left, hand.Index)
				if s < 0 || s > 1 {
					t.Fatalf("strength %f left [0,1]", s)
				}
				if prev >= 0 {
					target := hand.Clamp01(raw)
					lo, hi := math.Min(prev, target), math.Max(prev, target)
					if s < lo-1e-12 || s > hi+1e-12 {
						t.Fatalf("frame %d: %f not between %f and %f", i, s, prev, target)
					}
				}
				prev = s
			}
		})
	}
}

func TestEngine_Channels(t *testing.T) {
	t.Run("rejects out of range", func(t *testing.T) {
		e := newTestEngine(t, nil)
		if _, err := e.Strength(hand.Left, hand.Finger(5)); !errors.Is(err, ErrChannelOutOfRange) {
			t.Errorf("expected ErrChannelOutOfRange, got %v", err)
		}
		if _, err := e.Observe(hand.Left, make([]float64, 6), true, frame); !errors.Is(err, ErrChannelOutOfRange) {
			t.Errorf("expected ErrChannelOutOfRange, got %v", err)
		}
		if _, err := e.Observe(hand.Side(3), nil, true, frame); !errors.Is(err, ErrUnknownSide) {
			t.Errorf("expected ErrUnknownSide, got %v", err)
		}
	})

	t.Run("thumb can be excluded", func(t *testing.T) {
		e := newTestEngine(t, func(c *Config) {
			instant(c)
			c.IncludeThumb = false
		})
		if got := len(e.Channels()); got != 4 {
			t.Errorf("expected 4 channels, got %d", got)
		}
		events, err := e.Observe(hand.Left, []float64{1, 0, 0, 0, 0}, true, frame)
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("thumb channel should be ignored, got %v", events)
		}
	})

	t.Run("hands are independent", func(t *testing.T) {
		e := newTestEngine(t, instant)
		r := hand.FingerStrength(hand.Ring, 0.8)
		if _, err := e.ObserveReading(hand.Right, &r, frame); err != nil {
			t.Fatalf("observe: %v", err)
		}
		if p, _ := e.Pinched(hand.Right, hand.Ring); !p {
			t.Error("right ring should be pinched")
		}
		if p, _ := e.Pinched(hand.Left, hand.Ring); p {
			t.Error("left ring should not be pinched")
		}
	})

	t.Run("reset clears latches", func(t *testing.T) {
		e := newTestEngine(t, instant)
		observeIndex(t, e, 0.9, true)
		e.Reset()
		if p, _ := e.Pinched(hand.Left, hand.Index); p {
			t.Error("expected latch cleared by reset")
		}
	})
}

func TestEngine_ObserveFrame(t *testing.T) {
	e := newTestEngine(t, instant)
	f := hand.Frame{Elapsed: frame}
	f.Hands[hand.Left] = hand.FingerStrength(hand.Middle, 0.7)
	f.Hands[hand.Right] = hand.FingerStrength(hand.Middle, 0.7)

	// First frame seeds without micro-movement, so only the two starts fire.
	events, err := e.ObserveFrame(&f)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %v", events)
	}
	if events[0].Side != hand.Left || events[1].Side != hand.Right {
		t.Errorf("expected left before right, got %v", events)
	}
}
