package dynamics

import "math"

// Softmax converts a row of logits to a probability distribution.
//
// The row maximum is subtracted before exponentiating, so large magnitudes
// never overflow: the largest term is always exp(0) = 1. Softmax of an empty
// row is an empty slice.
func Softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Argmax returns the index and value of the largest element.
// Ties resolve to the lowest index. Argmax of an empty slice returns (-1, 0).
func Argmax(values []float64) (int, float64) {
	if len(values) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best, values[best]
}
