package hand

// DistanceStrength converts the thumb-to-fingertip distance into a pinch
// strength: distances at or below minDist read 1, at or above maxDist read 0, and
// values in between fall off linearly. The thumb compared with itself and
// missing joints both read 0.
func DistanceStrength(s *Skeleton, f Finger, minDist, maxDist float64) float64 {
	if !f.Valid() || f == Thumb || maxDist <= minDist {
		return 0
	}
	thumb, ok := s.Joint(ThumbTip)
	if !ok {
		return 0
	}
	tip, ok := s.Joint(TipOf(f))
	if !ok {
		return 0
	}
	return Clamp01(inverseLerp(maxDist, minDist, Distance(thumb, tip)))
}

// FillDistanceStrengths overwrites every finger strength of r with the
// distance-derived value. Untracked readings are left untouched.
func FillDistanceStrengths(r *Reading, minDist, maxDist float64) {
	if r == nil || !r.Tracked {
		return
	}
	for f := Thumb; f <= Pinky; f++ {
		r.Strength[f] = DistanceStrength(&r.Skeleton, f, minDist, maxDist)
	}
}

func inverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return (v - a) / (b - a)
}
