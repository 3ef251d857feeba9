// Package routing: the CVRP dynamic embedding strategy.
//
// TSP node features never change during construction, so TSP uses
// decode.StaticEmbedding. CVRP nodes DO change: a served customer's
// outstanding demand drops to zero. CapacityDynamic projects each
// node's outstanding demand into additive corrections for the glimpse
// key, glimpse value and logit key, recomputed every step from the
// state alone.
package routing

import (
	"github.com/katalvlaran/attnroute/decode"
	"github.com/katalvlaran/attnroute/tensor"
)

// CapacityDynamic projects per-node outstanding demand (zero once
// served, zero at the depot) through one bias-free 1 → 3D map, chunked
// into the three correction tensors.
type CapacityDynamic struct {
	dim  int
	proj *tensor.Linear // 1 → 3D
}

// NewCapacityDynamic builds the strategy for a given embedding width.
func NewCapacityDynamic(embedDim int, seed int64) (*CapacityDynamic, error) {
	proj, err := tensor.NewLinear(1, 3*embedDim, seed)
	if err != nil {
		return nil, err
	}

	return &CapacityDynamic{dim: embedDim, proj: proj}, nil
}

// Corrections implements decode.DynamicEmbedder. Each returned tensor
// is (B*, N, D) over the working batch.
func (c *CapacityDynamic) Corrections(td decode.StateView) (*tensor.Dense, *tensor.Dense, *tensor.Dense, error) {
	var (
		served = td.Float("served")
		demand = td.Float("demand")
	)
	if served == nil || demand == nil {
		return nil, nil, nil, ErrStateMismatch
	}

	var (
		batch = td.BatchSize()
		nodes = td.NumNodes()
		sd    = served.Data()
		dd    = demand.Data()
	)
	if demand.Dim(0) != batch || demand.Dim(1) != nodes {
		return nil, nil, nil, ErrStateMismatch
	}

	outstanding, err := tensor.NewDense(batch, nodes, 1)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		od   = outstanding.Data()
		b, n int
	)
	for b = 0; b < batch; b++ {
		for n = 0; n < nodes; n++ {
			if sd[b*nodes+n] == 0 {
				od[b*nodes+n] = dd[b*nodes+n]
			}
		}
	}

	fused, err := c.proj.Apply(outstanding)
	if err != nil {
		return nil, nil, nil, err
	}

	return tensor.Chunk3(fused)
}
