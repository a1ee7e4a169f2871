package hand

import (
	"context"
	"io"
	"sync"
)

// MockSource is an in-memory Source.
// It plays back a fixed list of frames, optionally looping.
type MockSource struct {
	mu     sync.Mutex
	frames []Frame
	index  int
	loop   bool
	err    error
	closed bool
}

// NewMockSource creates a new MockSource over frames.
func NewMockSource(frames []Frame, loop bool) *MockSource {
	return &MockSource{frames: frames, loop: loop}
}

// SetError sets the error that will be returned by Next.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the pre-configured frames in order.
func (m *MockSource) Next(ctx context.Context) (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if m.err != nil {
		return Frame{}, m.err
	}
	if m.closed {
		return Frame{}, io.EOF
	}
	if m.index >= len(m.frames) {
		if !m.loop || len(m.frames) == 0 {
			return Frame{}, io.EOF
		}
		m.index = 0
	}
	f := m.frames[m.index]
	m.index++
	return f, nil
}

// Close is a no-op beyond making further reads return io.EOF.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Fixture geometry, in meters. The thumb tip sits about one reference
// hand length (0.10) from the wrist so that curling a finger onto it
// keeps the measured hand length near the reference.
var (
	fixtureWrist = Point3D{X: 0, Y: 0, Z: 0}
	fixtureThumb = Point3D{X: 0, Y: 0.095, Z: 0.03}

	fixtureOpenTips = [NumFingers]Point3D{
		Index:  {X: 0.03, Y: 0.10, Z: -0.02},
		Middle: {X: 0, Y: 0.10, Z: -0.02},
		Ring:   {X: -0.02, Y: 0.095, Z: -0.02},
		Pinky:  {X: -0.04, Y: 0.08, Z: -0.02},
	}

	fixtureTouchOffsets = [NumFingers]Point3D{
		Index:  {X: 0.008},
		Middle: {Y: 0.008},
		Ring:   {X: -0.008},
		Pinky:  {Y: -0.008},
	}
)

// PoseReading returns a tracked reading whose listed fingertips touch the
// thumb tip and whose other fingers are extended.
func PoseReading(touching ...Finger) Reading {
	closed := make(map[Finger]bool, len(touching))
	for _, f := range touching {
		closed[f] = true
	}

	r := Reading{Tracked: true}
	r.Skeleton.Set(WristRoot, fixtureWrist)
	r.Skeleton.Set(ThumbTip, fixtureThumb)
	for f := Index; f <= Pinky; f++ {
		p := fixtureOpenTips[f]
		if closed[f] {
			off := fixtureTouchOffsets[f]
			p = Point3D{X: fixtureThumb.X + off.X, Y: fixtureThumb.Y + off.Y, Z: fixtureThumb.Z + off.Z}
		}
		r.Skeleton.Set(TipOf(f), p)
	}
	return r
}

// ScaledPose scales every joint of r around the wrist by factor, simulating
// a larger or smaller hand.
func ScaledPose(r Reading, factor float64) Reading {
	wrist := r.Skeleton.Points[WristRoot]
	for j := 0; j < NumJoints; j++ {
		if !r.Skeleton.Present[j] {
			continue
		}
		p := r.Skeleton.Points[j]
		r.Skeleton.Points[j] = Point3D{
			X: wrist.X + (p.X-wrist.X)*factor,
			Y: wrist.Y + (p.Y-wrist.Y)*factor,
			Z: wrist.Z + (p.Z-wrist.Z)*factor,
		}
	}
	return r
}

// StrengthReading returns a tracked reading with the given per-finger
// strengths and no joints.
func StrengthReading(strengths ...float64) Reading {
	r := Reading{Tracked: true}
	copy(r.Strength[:], strengths)
	return r
}

// FingerStrength returns a tracked reading where only f carries strength v.
func FingerStrength(f Finger, v float64) Reading {
	r := Reading{Tracked: true}
	if f.Valid() {
		r.Strength[f] = v
	}
	return r
}
