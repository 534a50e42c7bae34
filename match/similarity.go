package match

import "math"

// Cosine returns the cosine similarity of a and b. The boolean is false when
// the pair is degenerate (empty, different lengths, or a zero vector), in
// which case the similarity is 0.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push |sim| a hair past 1.
	return math.Max(-1, math.Min(1, sim)), true
}
