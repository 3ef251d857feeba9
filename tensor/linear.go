// Package tensor: bias-free linear maps.
// Linear implements y = x·Wᵀ with a (out, in) weight matrix, applied
// over the last axis of a rank-2 or rank-3 input. Initialization is
// deterministic: an explicit seed drives a uniform ±1/sqrt(in) draw,
// and seed==0 selects a fixed default stream so zero-value callers are
// reproducible across platforms.
package tensor

import (
	"math"
	"math/rand"
)

// defaultInitSeed is the fixed seed used when callers pass seed==0.
// The value is arbitrary but stable to keep reproducible defaults.
const defaultInitSeed int64 = 1

// Linear is a bias-free linear projection with weight shape (out, in),
// row-major: w[o*in+i] multiplies input feature i into output feature o.
type Linear struct {
	in, out int
	w       []float64
}

// NewLinear creates an in→out projection with uniform ±1/sqrt(in)
// initialization drawn from a deterministic stream.
//
// Contracts:
//   - in > 0 and out > 0, else ErrBadShape.
//
// Complexity: O(in·out).
func NewLinear(in, out int, seed int64) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, ErrBadShape
	}

	s := seed
	if s == 0 {
		s = defaultInitSeed
	}

	var (
		rng   = rand.New(rand.NewSource(s))
		bound = 1.0 / math.Sqrt(float64(in))
		w     = make([]float64, in*out)
		i     int
	)
	for i = range w {
		w[i] = (2*rng.Float64() - 1) * bound
	}

	return &Linear{in: in, out: out, w: w}, nil
}

// InDim returns the fan-in of the layer.
func (l *Linear) InDim() int { return l.in }

// OutDim returns the fan-out of the layer.
func (l *Linear) OutDim() int { return l.out }

// SetWeights replaces the weight matrix with a trained one, row-major
// (out, in). The slice is copied. Returns ErrDimensionMismatch when
// len(w) != in·out.
func (l *Linear) SetWeights(w []float64) error {
	if len(w) != l.in*l.out {
		return ErrDimensionMismatch
	}
	copy(l.w, w)

	return nil
}

// Apply projects the last axis of x through the layer: a rank-2 input
// (B, in) yields (B, out), a rank-3 input (B, N, in) yields (B, N, out).
//
// Contracts:
//   - x non-nil, rank 2 or 3, last axis == InDim.
//
// Complexity: O(rows·in·out).
func (l *Linear) Apply(x *Dense) (*Dense, error) {
	if x == nil {
		return nil, ErrNilTensor
	}

	rank := x.Rank()
	if rank != 2 && rank != 3 {
		return nil, ErrDimensionMismatch
	}
	if x.shape[rank-1] != l.in {
		return nil, ErrDimensionMismatch
	}

	shape := append([]int(nil), x.shape...)
	shape[rank-1] = l.out
	out, err := NewDense(shape...)
	if err != nil {
		return nil, err
	}

	var (
		rows     = len(x.data) / l.in
		r, o, i  int
		src, dst int
		acc      float64
		wRow     int
	)
	for r = 0; r < rows; r++ {
		src = r * l.in
		dst = r * l.out
		for o = 0; o < l.out; o++ {
			acc = 0
			wRow = o * l.in
			for i = 0; i < l.in; i++ {
				acc += x.data[src+i] * l.w[wRow+i]
			}
			out.data[dst+o] = acc
		}
	}

	return out, nil
}
