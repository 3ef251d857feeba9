// Package routing: step-context builders for the shipped environments.
//
// A context builder answers "where is this trajectory now" as a D-wide
// query vector. Both builders below assemble a per-row feature matrix
// and push it through one bias-free projection, so a whole batch is one
// matrix product per step.
package routing

import (
	"math"
	"math/rand"

	"github.com/katalvlaran/attnroute/decode"
	"github.com/katalvlaran/attnroute/tensor"
)

// TSPContext builds the TSP step query from the embeddings of the first
// and current node of the partial tour: W·[emb(first) ‖ emb(current)].
// Before any node is visited, a learned placeholder replaces the
// concatenated pair (there is no "first" yet).
type TSPContext struct {
	dim         int
	proj        *tensor.Linear // 2D → D
	placeholder []float64      // len 2D, learned start-of-decode token
}

// NewTSPContext builds the strategy for a given embedding width; seed
// drives deterministic parameter initialization (0 = fixed default).
func NewTSPContext(embedDim int, seed int64) (*TSPContext, error) {
	proj, err := tensor.NewLinear(2*embedDim, embedDim, seed)
	if err != nil {
		return nil, err
	}

	s := seed
	if s == 0 {
		s = 1
	}
	var (
		rng         = rand.New(rand.NewSource(s))
		bound       = 1.0 / math.Sqrt(float64(2*embedDim))
		placeholder = make([]float64, 2*embedDim)
		i           int
	)
	for i = range placeholder {
		placeholder[i] = (2*rng.Float64() - 1) * bound
	}

	return &TSPContext{dim: embedDim, proj: proj, placeholder: placeholder}, nil
}

// Build implements decode.ContextBuilder.
func (c *TSPContext) Build(nodes *tensor.Dense, td decode.StateView) (*tensor.Dense, error) {
	if nodes == nil || nodes.Rank() != 3 || nodes.Dim(2) != c.dim {
		return nil, ErrStateMismatch
	}

	var (
		first   = td.Int("first")
		current = td.Int("current")
	)
	if first == nil || current == nil {
		return nil, ErrStateMismatch
	}

	var (
		batch    = td.BatchSize()
		origB    = nodes.Dim(0)
		numNodes = nodes.Dim(1)
		ed       = nodes.Data()
		in, err  = tensor.NewDense(batch, 2*c.dim)
	)
	if err != nil {
		return nil, err
	}

	var (
		id      = in.Data()
		b, inst int
		fo, co  int
	)
	for b = 0; b < batch; b++ {
		if first[b] < 0 || current[b] < 0 {
			copy(id[b*2*c.dim:(b+1)*2*c.dim], c.placeholder)
			continue
		}
		inst = tensor.StartsInstance(b, origB)
		fo = (inst*numNodes + first[b]) * c.dim
		co = (inst*numNodes + current[b]) * c.dim
		copy(id[b*2*c.dim:b*2*c.dim+c.dim], ed[fo:fo+c.dim])
		copy(id[b*2*c.dim+c.dim:(b+1)*2*c.dim], ed[co:co+c.dim])
	}

	return c.proj.Apply(in)
}

// CVRPContext builds the CVRP step query from the current node's
// embedding and the vehicle's remaining capacity:
// W·[emb(current) ‖ remaining].
type CVRPContext struct {
	dim  int
	proj *tensor.Linear // D+1 → D
}

// NewCVRPContext builds the strategy for a given embedding width.
func NewCVRPContext(embedDim int, seed int64) (*CVRPContext, error) {
	proj, err := tensor.NewLinear(embedDim+1, embedDim, seed)
	if err != nil {
		return nil, err
	}

	return &CVRPContext{dim: embedDim, proj: proj}, nil
}

// Build implements decode.ContextBuilder.
func (c *CVRPContext) Build(nodes *tensor.Dense, td decode.StateView) (*tensor.Dense, error) {
	if nodes == nil || nodes.Rank() != 3 || nodes.Dim(2) != c.dim {
		return nil, ErrStateMismatch
	}

	var (
		current   = td.Int("current")
		remaining = td.Float("remaining")
	)
	if current == nil || remaining == nil {
		return nil, ErrStateMismatch
	}

	var (
		batch    = td.BatchSize()
		origB    = nodes.Dim(0)
		numNodes = nodes.Dim(1)
		width    = c.dim + 1
		ed       = nodes.Data()
		rd       = remaining.Data()
		in, err  = tensor.NewDense(batch, width)
	)
	if err != nil {
		return nil, err
	}

	var (
		id      = in.Data()
		b, inst int
		co      int
	)
	for b = 0; b < batch; b++ {
		inst = tensor.StartsInstance(b, origB)
		co = (inst*numNodes + current[b]) * c.dim
		copy(id[b*width:b*width+c.dim], ed[co:co+c.dim])
		id[b*width+c.dim] = rd[b]
	}

	return c.proj.Apply(in)
}
