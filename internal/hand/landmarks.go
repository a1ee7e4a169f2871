package hand

import "fmt"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	LandmarkWrist     = 0
	LandmarkThumbCMC  = 1
	LandmarkThumbMCP  = 2
	LandmarkThumbIP   = 3
	LandmarkThumbTip  = 4
	LandmarkIndexMCP  = 5
	LandmarkIndexPIP  = 6
	LandmarkIndexDIP  = 7
	LandmarkIndexTip  = 8
	LandmarkMiddleMCP = 9
	LandmarkMiddlePIP = 10
	LandmarkMiddleDIP = 11
	LandmarkMiddleTip = 12
	LandmarkRingMCP   = 13
	LandmarkRingPIP   = 14
	LandmarkRingDIP   = 15
	LandmarkRingTip   = 16
	LandmarkPinkyMCP  = 17
	LandmarkPinkyPIP  = 18
	LandmarkPinkyDIP  = 19
	LandmarkPinkyTip  = 20
	NumLandmarks      = 21
)

// landmarkJoints maps the fixed joint set onto MediaPipe indices.
var landmarkJoints = [NumJoints]int{
	ThumbTip:  LandmarkThumbTip,
	IndexTip:  LandmarkIndexTip,
	MiddleTip: LandmarkMiddleTip,
	RingTip:   LandmarkRingTip,
	PinkyTip:  LandmarkPinkyTip,
	WristRoot: LandmarkWrist,
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Side resolves the handedness label to a Side.
func (h *HandLandmarks) Side() (Side, error) {
	if h == nil {
		return 0, fmt.Errorf("nil landmarks")
	}
	return ParseSide(h.Handedness)
}

// Skeleton extracts the fixed joint set from the full landmark list.
func (h *HandLandmarks) Skeleton() Skeleton {
	var s Skeleton
	if h == nil {
		return s
	}
	for j, idx := range landmarkJoints {
		s.Set(Joint(j), h.Points[idx])
	}
	return s
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[LandmarkWrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := Distance(Point3D{}, normalized.Points[LandmarkMiddleMCP])

	// Avoid division by zero
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}

// FromLandmarks builds a tracked Reading from MediaPipe landmarks. Pinch
// strengths are left at zero; callers derive them with DistanceStrength
// when the tracker does not report them.
func FromLandmarks(h *HandLandmarks) Reading {
	if h == nil {
		return Reading{}
	}
	return Reading{
		Tracked:  true,
		Skeleton: h.Skeleton(),
	}
}
