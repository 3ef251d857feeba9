// Package attn: stable softmax helpers shared by the glimpse and logit
// stages. Both operate in place on small per-row scratch slices, so the
// hot loop allocates nothing beyond its reusable buffers.
package attn

import "math"

// softmaxInPlace converts scores to probabilities using the
// max-subtraction form. Entries equal to -Inf stay exactly zero.
// Returns false when every entry is -Inf (fully masked row).
//
// Complexity: O(n).
func softmaxInPlace(scores []float64) bool {
	var (
		maxv = math.Inf(-1)
		i    int
	)
	for i = range scores {
		if scores[i] > maxv {
			maxv = scores[i]
		}
	}
	if math.IsInf(maxv, -1) {
		return false
	}

	var sum float64
	for i = range scores {
		scores[i] = math.Exp(scores[i] - maxv)
		sum += scores[i]
	}
	for i = range scores {
		scores[i] /= sum
	}

	return true
}

// logSoftmaxInPlace converts scores to log-probabilities:
// s_i ← s_i − max − log Σ exp(s_j − max). -Inf entries remain -Inf.
// Returns false when every entry is -Inf.
//
// Complexity: O(n).
func logSoftmaxInPlace(scores []float64) bool {
	var (
		maxv = math.Inf(-1)
		i    int
	)
	for i = range scores {
		if scores[i] > maxv {
			maxv = scores[i]
		}
	}
	if math.IsInf(maxv, -1) {
		return false
	}

	var sum float64
	for i = range scores {
		if !math.IsInf(scores[i], -1) {
			sum += math.Exp(scores[i] - maxv)
		}
	}
	lse := maxv + math.Log(sum)
	for i = range scores {
		if !math.IsInf(scores[i], -1) {
			scores[i] -= lse
		}
	}

	return true
}
