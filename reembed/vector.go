package reembed

import "math"

// NormalizeVector returns v scaled to unit length, so a dot product between
// two normalized vectors is their cosine similarity.
// The input is not modified. A zero vector yields a zero vector of the same
// length; nil and empty input are returned as is.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	// Accumulate in float64; long float32 sums drift
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
