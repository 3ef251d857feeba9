// Package decode: the pluggable action-selection and start-seeding
// policies, with deterministic defaults.
//
// Determinism policy (shared with the rest of the module): no
// time-based randomness; a single *rand.Rand per decode call, created
// from Options.Seed, drives every sampled choice in step order.
package decode

import (
	"math/rand"

	"github.com/katalvlaran/attnroute/tensor"
)

// SelectionPolicy chooses one action per working row from the
// exponentiated step distribution.
//
// Contract: probs is (B*, N); mask is len B*·N with true = FORBIDDEN
// (the negation of the environment's action mask); the returned slice
// has one in-range node index per row and never selects a forbidden
// node. rng is non-nil.
type SelectionPolicy func(probs *tensor.Dense, mask []bool, mode DecodeType, rng *rand.Rand) ([]int, error)

// StartPolicy seeds multi-start decoding: given the UNEXPANDED state
// and a factor K, it returns K·B starting actions laid out starts-major
// (row s·B+b seeds rollout s of instance b), pairwise distinct within
// each instance.
type StartPolicy func(td StateView, numStarts int) ([]int, error)

// DecodeProbs is the default SelectionPolicy.
//
// Greedy modes take the most probable legal node (smallest index wins
// ties, keeping results deterministic). Sampling modes draw by
// inverse-CDF over the legal probability mass. A row whose every node
// is forbidden yields ErrInfeasibleState.
//
// Complexity: O(B*·N).
func DecodeProbs(probs *tensor.Dense, mask []bool, mode DecodeType, rng *rand.Rand) ([]int, error) {
	if probs == nil || probs.Rank() != 2 {
		return nil, ErrShapeMismatch
	}

	var (
		batch = probs.Dim(0)
		nodes = probs.Dim(1)
		data  = probs.Data()
	)
	if len(mask) != batch*nodes {
		return nil, ErrShapeMismatch
	}

	var (
		actions = make([]int, batch)
		greedy  = mode.greedy()
		b, n    int
		row     int
		best    int
		bestP   float64
		total   float64
		target  float64
		acc     float64
	)
	for b = 0; b < batch; b++ {
		row = b * nodes

		if greedy {
			best, bestP = -1, -1
			for n = 0; n < nodes; n++ {
				if mask[row+n] {
					continue
				}
				if data[row+n] > bestP {
					best, bestP = n, data[row+n]
				}
			}
			if best < 0 {
				return nil, ErrInfeasibleState
			}
			actions[b] = best
			continue
		}

		// Sampling: inverse-CDF over the legal mass.
		total = 0
		for n = 0; n < nodes; n++ {
			if !mask[row+n] {
				total += data[row+n]
			}
		}
		if total <= 0 {
			return nil, ErrInfeasibleState
		}
		target = rng.Float64() * total
		acc = 0
		best = -1
		for n = 0; n < nodes; n++ {
			if mask[row+n] {
				continue
			}
			acc += data[row+n]
			best = n
			if acc >= target {
				break
			}
		}
		// best holds the last legal node when FP drift leaves target
		// marginally above the accumulated mass.
		actions[b] = best
	}

	return actions, nil
}

// SelectStartNodes is the default StartPolicy: rollout s of instance b
// is seeded with the s-th smallest currently legal node of b. Distinct
// by construction; instances offering fewer than numStarts legal nodes
// yield ErrTooFewStartNodes.
//
// Complexity: O(B·N).
func SelectStartNodes(td StateView, numStarts int) ([]int, error) {
	if td == nil {
		return nil, ErrNilState
	}
	if numStarts <= 1 {
		return nil, ErrMultistartConfig
	}

	var (
		batch = td.BatchSize()
		nodes = td.NumNodes()
		out   = make([]int, numStarts*batch)
		b, n  int
		s     int
	)
	for b = 0; b < batch; b++ {
		s = 0
		for n = 0; n < nodes && s < numStarts; n++ {
			if td.Legal(b, n) {
				out[s*batch+b] = n
				s++
			}
		}
		if s < numStarts {
			return nil, ErrTooFewStartNodes
		}
	}

	return out, nil
}
