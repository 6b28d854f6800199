package reasoning

import "math"

// Normalize scales the given scores so they sum to one over the keys.
// A non-positive or vanishing sum degrades to the uniform distribution.
func Normalize(scores map[string]float64, keys []string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	sum := 0.0
	for _, k := range keys {
		v := scores[k]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[k] = v
		sum += v
	}
	if sum <= 0 {
		return Uniform(keys)
	}
	for _, k := range keys {
		out[k] /= sum
	}
	return out
}

// Uniform returns the flat distribution over the keys.
func Uniform(keys []string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	if len(keys) == 0 {
		return out
	}
	p := 1.0 / float64(len(keys))
	for _, k := range keys {
		out[k] = p
	}
	return out
}

// Argmax returns the key with the highest probability. Ties resolve
// to the earliest key in the given order, which keeps predictions
// stable across runs.
func Argmax(probs map[string]float64, keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	best := keys[0]
	for _, k := range keys[1:] {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return best
}

// Softmax converts log scores to a distribution. The max is
// subtracted first so large magnitudes cannot overflow.
func Softmax(scores map[string]float64, keys []string) map[string]float64 {
	if len(keys) == 0 {
		return map[string]float64{}
	}
	m := math.Inf(-1)
	for _, k := range keys {
		if scores[k] > m {
			m = scores[k]
		}
	}
	out := make(map[string]float64, len(keys))
	sum := 0.0
	for _, k := range keys {
		e := math.Exp(scores[k] - m)
		out[k] = e
		sum += e
	}
	for _, k := range keys {
		out[k] /= sum
	}
	return out
}
