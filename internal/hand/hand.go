// Package hand defines the per-frame hand-tracking input consumed by the
// pinch engine, the posture classifier and the session orchestrator.
package hand

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Side identifies which tracked hand a reading belongs to.
type Side int

const (
	Left Side = iota
	Right
)

// NumSides is the number of tracked hands.
const NumSides = 2

// Sides lists both hands in table order.
var Sides = [NumSides]Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

// ParseSide parses "left" or "right" (case-insensitive).
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown hand side %q", v)
	}
}

// Finger indexes the pinch channels. The thumb slot exists even when a
// deployment does not track it as a channel.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// NumFingers is the fixed number of finger slots per hand.
const NumFingers = 5

// NoFinger marks rows and events that do not refer to a finger channel.
const NoFinger Finger = -1

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f == NoFinger {
		return "none"
	}
	if !f.Valid() {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// MarshalText encodes the finger by name.
func (f Finger) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Valid reports whether f is one of the five finger slots.
func (f Finger) Valid() bool {
	return f >= Thumb && f <= Pinky
}

// ParseFinger parses a finger name such as "index".
func ParseFinger(v string) (Finger, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range fingerNames {
		if v == name {
			return Finger(i), nil
		}
	}
	return NoFinger, fmt.Errorf("unknown finger %q", v)
}

// Joint names the fixed joint set delivered by the tracker.
type Joint int

const (
	ThumbTip Joint = iota
	IndexTip
	MiddleTip
	RingTip
	PinkyTip
	WristRoot
)

// NumJoints is the size of the fixed joint set.
const NumJoints = 6

var jointNames = [NumJoints]string{"thumb_tip", "index_tip", "middle_tip", "ring_tip", "pinky_tip", "wrist_root"}

func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJoint parses a joint name such as "thumb_tip".
func ParseJoint(v string) (Joint, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range jointNames {
		if v == name {
			return Joint(i), nil
		}
	}
	return -1, fmt.Errorf("unknown joint %q", v)
}

// TipOf returns the fingertip joint for a finger.
func TipOf(f Finger) Joint {
	return Joint(f)
}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance calculates the Euclidean distance between two 3D points.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Skeleton holds the joint positions seen this frame. Present marks the
// joints the tracker actually delivered.
type Skeleton struct {
	Points  [NumJoints]Point3D
	Present [NumJoints]bool
}

// Set stores a joint position and marks it present.
func (s *Skeleton) Set(j Joint, p Point3D) {
	if j < 0 || int(j) >= NumJoints {
		return
	}
	s.Points[j] = p
	s.Present[j] = true
}

// Joint returns the position of j and whether it was delivered.
func (s *Skeleton) Joint(j Joint) (Point3D, bool) {
	if s == nil || j < 0 || int(j) >= NumJoints {
		return Point3D{}, false
	}
	return s.Points[j], s.Present[j]
}

// HandLength is the wrist-to-middle-tip distance, or 0 when either joint
// is missing.
func (s *Skeleton) HandLength() float64 {
	wrist, ok := s.Joint(WristRoot)
	if !ok {
		return 0
	}
	middle, ok := s.Joint(MiddleTip)
	if !ok {
		return 0
	}
	return Distance(wrist, middle)
}

// Reading is one hand's snapshot for a single frame.
type Reading struct {
	Tracked  bool
	Strength [NumFingers]float64
	Skeleton Skeleton
}

// Frame is one tick of input for both hands. Elapsed is the time since
// the previous frame.
type Frame struct {
	Elapsed time.Duration
	Hands   [NumSides]Reading
}

// Hand returns the reading for side.
func (f *Frame) Hand(side Side) *Reading {
	if !side.Valid() {
		return nil
	}
	return &f.Hands[side]
}

// Clamp01 clamps v to [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
