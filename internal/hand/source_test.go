package hand

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDecodeFrame(t *testing.T) {
	t.Run("strengths and joints", func(t *testing.T) {
		f, err := DecodeFrame([]byte(`{"dt":0.05,"left":{"strength":[0,0.7],"joints":{"thumb_tip":[0,0,0],"index_tip":[0.01,0,0]}},"right":null}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Elapsed != 50*time.Millisecond {
			t.Errorf("expected 50ms, got %v", f.Elapsed)
		}
		left := f.Hands[Left]
		if !left.Tracked {
			t.Error("left hand should default to tracked")
		}
		if left.Strength[Index] != 0.7 {
			t.Errorf("expected index 0.7, got %f", left.Strength[Index])
		}
		if _, ok := left.Skeleton.Joint(IndexTip); !ok {
			t.Error("index tip should be present")
		}
		if f.Hands[Right].Tracked {
			t.Error("null right hand should be untracked")
		}
	})

	t.Run("missing dt uses default interval", func(t *testing.T) {
		f, err := DecodeFrame([]byte(`{"left":{"tracked":false}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Elapsed != DefaultFrameInterval {
			t.Errorf("expected %v, got %v", DefaultFrameInterval, f.Elapsed)
		}
		if f.Hands[Left].Tracked {
			t.Error("explicit tracked=false should be honored")
		}
	})

	t.Run("landmarks map onto joints", func(t *testing.T) {
		var b strings.Builder
		b.WriteString(`{"right":{"landmarks":[`)
		for i := 0; i < NumLandmarks; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("[")
			b.WriteString(strings.Repeat("0,", 2))
			if i == LandmarkMiddleTip {
				b.WriteString("0.1")
			} else {
				b.WriteString("0")
			}
			b.WriteString("]")
		}
		b.WriteString(`]}}`)

		f, err := DecodeFrame([]byte(b.String()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.Hands[Right].Skeleton.HandLength(); math.Abs(got-0.1) > epsilon {
			t.Errorf("expected hand length 0.1, got %f", got)
		}
	})

	errorCases := map[string]string{
		"negative dt":     `{"dt":-1}`,
		"bad json":        `{"dt":`,
		"unknown joint":   `{"left":{"joints":{"elbow":[0,0,0]}}}`,
		"too many values": `{"left":{"strength":[0,0,0,0,0,0]}}`,
		"short landmarks": `{"left":{"landmarks":[[0,0,0]]}}`,
	}
	for name, in := range errorCases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeFrame([]byte(in)); err == nil {
				t.Errorf("expected error for %s", in)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	in := Frame{Elapsed: 40 * time.Millisecond}
	in.Hands[Left] = PoseReading(Ring)
	in.Hands[Left].Strength[Ring] = 0.9

	data, err := EncodeFrame(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Elapsed != in.Elapsed {
		t.Errorf("expected %v, got %v", in.Elapsed, out.Elapsed)
	}
	if out.Hands[Left].Skeleton != in.Hands[Left].Skeleton {
		t.Error("skeleton changed across encode/decode")
	}
	if out.Hands[Right].Tracked {
		t.Error("right hand should stay untracked")
	}
}

func TestReplaySource(t *testing.T) {
	input := `# recorded session
{"dt":0.1,"left":{"strength":[0,0.2]}}

{"dt":0.1,"left":{"strength":[0,0.8]}}
`
	src := NewReplaySource(strings.NewReader(input))
	defer src.Close()

	ctx := context.Background()
	var got []float64
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, f.Hands[Left].Strength[Index])
	}

	if len(got) != 2 || got[0] != 0.2 || got[1] != 0.8 {
		t.Errorf("expected [0.2 0.8], got %v", got)
	}

	t.Run("bad line reports its number", func(t *testing.T) {
		src := NewReplaySource(strings.NewReader("{}\n{oops}\n"))
		if _, err := src.Next(ctx); err != nil {
			t.Fatalf("first frame: %v", err)
		}
		_, err := src.Next(ctx)
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("expected line 2 error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		src := NewReplaySource(strings.NewReader("{}\n"))
		if _, err := src.Next(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMockSource(t *testing.T) {
	ctx := context.Background()
	frames := []Frame{{Elapsed: time.Millisecond}, {Elapsed: 2 * time.Millisecond}}

	t.Run("plays frames then EOF", func(t *testing.T) {
		m := NewMockSource(frames, false)
		for i := range frames {
			f, err := m.Next(ctx)
			if err != nil {
				t.Fatalf("frame %d: %v", i, err)
			}
			if f.Elapsed != frames[i].Elapsed {
				t.Errorf("frame %d: expected %v, got %v", i, frames[i].Elapsed, f.Elapsed)
			}
		}
		if _, err := m.Next(ctx); !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF, got %v", err)
		}
	})

	t.Run("loops when asked", func(t *testing.T) {
		m := NewMockSource(frames, true)
		for i := 0; i < 5; i++ {
			if _, err := m.Next(ctx); err != nil {
				t.Fatalf("iteration %d: %v", i, err)
			}
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		m := NewMockSource(frames, false)
		want := errors.New("tracker lost")
		m.SetError(want)
		if _, err := m.Next(ctx); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	t.Run("closed source is exhausted", func(t *testing.T) {
		m := NewMockSource(frames, true)
		m.Close()
		if _, err := m.Next(ctx); !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF, got %v", err)
		}
	})
}
