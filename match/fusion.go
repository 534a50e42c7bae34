package match

import "math"

// Alpha is the weight given to the preference score for a user base of the
// given size. It shrinks linearly as the population grows and never drops
// below floor nor exceeds 1.
func Alpha(population int, floor, scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	a := 1 - float64(max(population, 0))/scale
	return math.Min(1, math.Max(floor, a))
}

// Fuse blends a preference score with a behaviour score. The behaviour score
// is divided by behaviorScale to bring it to the magnitude of the preference
// score.
func Fuse(alpha, preference, behavior, behaviorScale float64) float64 {
	if behaviorScale == 0 {
		behaviorScale = 1
	}
	return alpha*preference + (1-alpha)*(behavior/behaviorScale)
}
