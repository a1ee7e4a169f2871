package hand

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Source defines the interface for hand-tracking input implementations.
type Source interface {
	// Next returns the next frame. It returns io.EOF when the source is
	// exhausted.
	Next(ctx context.Context) (Frame, error)

	// Close releases any resources held by the source.
	Close() error
}

// DefaultFrameInterval is used when a recorded frame carries no dt.
const DefaultFrameInterval = time.Second / 30

// ReplaySource plays back frames recorded as JSON lines.
//
// Each line looks like:
//
//	{"dt":0.033,"left":{"tracked":true,"strength":[0,0.7,0,0,0],
//	  "joints":{"thumb_tip":[0,0,0],"index_tip":[0.01,0,0]}},"right":null}
//
// A hand may instead carry "landmarks" with the 21 MediaPipe points.
// A missing or null hand is untracked.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReplaySource creates a ReplaySource over r. If r is an io.Closer it
// is closed by Close.
func NewReplaySource(r io.Reader) *ReplaySource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	s := &ReplaySource{scanner: sc}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next decodes the next non-empty line.
func (s *ReplaySource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("read frame line %d: %w", s.line+1, err)
			}
			return Frame{}, io.EOF
		}
		s.line++

		raw := strings.TrimSpace(s.scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		frame, err := DecodeFrame([]byte(raw))
		if err != nil {
			return Frame{}, fmt.Errorf("frame line %d: %w", s.line, err)
		}
		return frame, nil
	}
}

// Close closes the underlying reader if it is closable.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// jsonFrame is the wire representation of a Frame.
type jsonFrame struct {
	DT    *float64  `json:"dt,omitempty"`
	Left  *jsonHand `json:"left"`
	Right *jsonHand `json:"right"`
}

type jsonHand struct {
	Tracked   *bool                 `json:"tracked,omitempty"`
	Strength  []float64             `json:"strength,omitempty"`
	Joints    map[string][3]float64 `json:"joints,omitempty"`
	Landmarks [][3]float64          `json:"landmarks,omitempty"`
}

// DecodeFrame decodes one JSON frame.
func DecodeFrame(data []byte) (Frame, error) {
	var jf jsonFrame
	if err := json.Unmarshal(data, &jf); err != nil {
		return Frame{}, fmt.Errorf("parse frame: %w", err)
	}

	frame := Frame{Elapsed: DefaultFrameInterval}
	if jf.DT != nil {
		if *jf.DT < 0 {
			return Frame{}, errors.New("negative dt")
		}
		frame.Elapsed = time.Duration(*jf.DT * float64(time.Second))
	}

	for side, jh := range map[Side]*jsonHand{Left: jf.Left, Right: jf.Right} {
		r, err := jh.toReading()
		if err != nil {
			return Frame{}, fmt.Errorf("%s hand: %w", side, err)
		}
		frame.Hands[side] = r
	}
	return frame, nil
}

func (h *jsonHand) toReading() (Reading, error) {
	if h == nil {
		return Reading{}, nil
	}

	var r Reading
	if len(h.Landmarks) > 0 {
		if len(h.Landmarks) != NumLandmarks {
			return Reading{}, fmt.Errorf("got %d landmarks, expected %d", len(h.Landmarks), NumLandmarks)
		}
		var lm HandLandmarks
		for i, p := range h.Landmarks {
			lm.Points[i] = Point3D{X: p[0], Y: p[1], Z: p[2]}
		}
		r = FromLandmarks(&lm)
	}

	for name, p := range h.Joints {
		j, err := ParseJoint(name)
		if err != nil {
			return Reading{}, err
		}
		r.Skeleton.Set(j, Point3D{X: p[0], Y: p[1], Z: p[2]})
	}

	if len(h.Strength) > NumFingers {
		return Reading{}, fmt.Errorf("got %d strengths, expected at most %d", len(h.Strength), NumFingers)
	}
	copy(r.Strength[:], h.Strength)

	r.Tracked = true
	if h.Tracked != nil {
		r.Tracked = *h.Tracked
	}
	return r, nil
}

// EncodeFrame is the inverse of DecodeFrame; only present joints are written.
func EncodeFrame(f Frame) ([]byte, error) {
	dt := f.Elapsed.Seconds()
	jf := jsonFrame{DT: &dt}
	for _, side := range Sides {
		r := f.Hands[side]
		tracked := r.Tracked
		jh := &jsonHand{Tracked: &tracked, Strength: append([]float64(nil), r.Strength[:]...)}
		for j := Joint(0); int(j) < NumJoints; j++ {
			if p, ok := r.Skeleton.Joint(j); ok {
				if jh.Joints == nil {
					jh.Joints = make(map[string][3]float64)
				}
				jh.Joints[j.String()] = [3]float64{p.X, p.Y, p.Z}
			}
		}
		if side == Left {
			jf.Left = jh
		} else {
			jf.Right = jh
		}
	}
	return json.Marshal(jf)
}
