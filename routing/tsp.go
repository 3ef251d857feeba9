// Package routing: the Travelling Salesman environment.
//
// An instance is a set of N planar nodes; a solution visits every node
// exactly once. The action mask is simply "unvisited"; once the last
// node is visited the row is done and only the current node stays legal
// (the no-op stay action). Reward is the negative closed-tour length.
package routing

import (
	"math"

	"github.com/katalvlaran/attnroute/decode"
	"github.com/katalvlaran/attnroute/tensor"
)

// EnvNameTSP is the registry key of the TSP environment family.
const EnvNameTSP = "tsp"

// TSP is a batched Travelling Salesman environment over fixed planar
// coordinates. The value itself is immutable after construction; all
// per-trajectory mutation lives in the decode.State it creates.
type TSP struct {
	coords *tensor.Dense // (B, N, 2)
	batch  int
	nodes  int
}

// NewTSP validates coords (B, N, 2) and builds the environment.
// Coordinates must be finite; N >= 2.
func NewTSP(coords *tensor.Dense) (*TSP, error) {
	if coords == nil || coords.Rank() != 3 || coords.Dim(2) != 2 || coords.Dim(1) < 2 {
		return nil, ErrBadCoords
	}
	for _, v := range coords.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrBadCoords
		}
	}

	return &TSP{coords: coords, batch: coords.Dim(0), nodes: coords.Dim(1)}, nil
}

// Name implements decode.Env.
func (e *TSP) Name() string { return EnvNameTSP }

// Reset creates the initial state: every node legal, nothing visited,
// first/current unset (-1).
func (e *TSP) Reset() (*decode.State, error) {
	td, err := decode.NewState(e.batch, e.nodes)
	if err != nil {
		return nil, err
	}

	var (
		first   = make([]int, e.batch)
		current = make([]int, e.batch)
		b       int
	)
	for b = 0; b < e.batch; b++ {
		first[b] = -1
		current[b] = -1
	}
	td.SetInt("first", first)
	td.SetInt("current", current)

	return td, nil
}

// Step implements decode.Env: visit each row's pending action, update
// the unvisited mask, flip done when the tour is complete. Stepping a
// done row is a no-op regardless of the (stay) action.
func (e *TSP) Step(td *decode.State) error {
	if td == nil || td.NumNodes() != e.nodes {
		return ErrStateMismatch
	}

	var (
		first   = td.Int("first")
		current = td.Int("current")
		batch   = td.BatchSize()
		b, n    int
		a       int
		left    int
	)
	if first == nil || current == nil {
		return ErrStateMismatch
	}

	for b = 0; b < batch; b++ {
		if td.Done(b) {
			continue
		}

		a = td.Action(b)
		if !td.Legal(b, a) {
			return ErrIllegalAction
		}

		if first[b] < 0 {
			first[b] = a
		}
		current[b] = a
		td.SetLegal(b, a, false)

		left = 0
		for n = 0; n < e.nodes; n++ {
			if td.Legal(b, n) {
				left++
			}
		}
		if left == 0 {
			// Tour complete: done, and the current node becomes the
			// sole legal (stay) action.
			td.SetDone(b, true)
			td.SetLegal(b, a, true)
		}
	}

	return nil
}

// Reward implements decode.Env: the negative closed-tour length per
// row. Consecutive repeats (stay actions of finished rows) contribute
// zero distance; the tour closes from the last distinct node back to
// the first. Costs are stabilized to 1e-9.
func (e *TSP) Reward(td *decode.State, actions [][]int) ([]float64, error) {
	if td == nil || len(actions) != td.BatchSize() {
		return nil, ErrStateMismatch
	}

	var (
		batch = td.BatchSize()
		out   = make([]float64, batch)
		b, t  int
		inst  int
		sum   float64
		u, v  int
	)
	for b = 0; b < batch; b++ {
		if len(actions[b]) == 0 {
			return nil, ErrStateMismatch
		}
		inst = tensor.StartsInstance(b, e.batch)

		sum = 0
		for t = 1; t < len(actions[b]); t++ {
			u, v = actions[b][t-1], actions[b][t]
			sum += e.dist(inst, u, v)
		}
		// Close the cycle.
		sum += e.dist(inst, actions[b][len(actions[b])-1], actions[b][0])
		out[b] = -round1e9(sum)
	}

	return out, nil
}

// dist returns the Euclidean distance between nodes u and v of an
// instance. Indices are decoder-validated; this helper reads directly.
func (e *TSP) dist(inst, u, v int) float64 {
	var (
		data = e.coords.Data()
		uo   = (inst*e.nodes + u) * 2
		vo   = (inst*e.nodes + v) * 2
	)

	return euclid(data[uo], data[uo+1], data[vo], data[vo+1])
}
