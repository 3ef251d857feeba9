// Package tensor: bulk operations shared by the decoder hot path.
// All operations allocate their result; operands are never mutated, so
// cached tensors stay bit-identical across decoding steps.
package tensor

// Add returns the elementwise sum a + b as a new tensor.
//
// Contracts:
//   - a and b must be non-nil and share the exact shape.
//
// Complexity: O(size).
func Add(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, ErrNilTensor
	}
	if !sameShape(a.shape, b.shape) {
		return nil, ErrDimensionMismatch
	}

	out := a.Clone()
	var i int
	for i = range out.data {
		out.data[i] += b.data[i]
	}

	return out, nil
}

// MeanAxis1 averages a rank-3 tensor (B, N, D) over its node axis,
// producing (B, D). This is the graph-level summary used to build the
// fixed context vector.
//
// Complexity: O(B·N·D).
func MeanAxis1(t *Dense) (*Dense, error) {
	if t == nil {
		return nil, ErrNilTensor
	}
	if t.Rank() != 3 {
		return nil, ErrDimensionMismatch
	}

	var (
		batch = t.shape[0]
		nodes = t.shape[1]
		dim   = t.shape[2]
	)
	out, err := NewDense(batch, dim)
	if err != nil {
		return nil, err
	}

	var (
		b, n, d int
		row     int
		inv     = 1.0 / float64(nodes)
	)
	for b = 0; b < batch; b++ {
		for n = 0; n < nodes; n++ {
			row = (b*nodes + n) * dim
			for d = 0; d < dim; d++ {
				out.data[b*dim+d] += t.data[row+d]
			}
		}
		for d = 0; d < dim; d++ {
			out.data[b*dim+d] *= inv
		}
	}

	return out, nil
}

// Chunk3 splits the last axis of t into three equal parts, returning
// three new tensors of shape (..., D/3). Returns ErrDimensionMismatch
// when the last axis is not divisible by three.
//
// Used to separate the fused (glimpse key | glimpse value | logit key)
// node projection.
//
// Complexity: O(size).
func Chunk3(t *Dense) (*Dense, *Dense, *Dense, error) {
	if t == nil {
		return nil, nil, nil, ErrNilTensor
	}

	var (
		rank = t.Rank()
		last = t.shape[rank-1]
	)
	if last%3 != 0 {
		return nil, nil, nil, ErrDimensionMismatch
	}

	var (
		part  = last / 3
		rows  = len(t.data) / last
		shape = append([]int(nil), t.shape...)
	)
	shape[rank-1] = part

	a, err := NewDense(shape...)
	if err != nil {
		return nil, nil, nil, err
	}
	b, _ := NewDense(shape...)
	c, _ := NewDense(shape...)

	var r, src, dst int
	for r = 0; r < rows; r++ {
		src = r * last
		dst = r * part
		copy(a.data[dst:dst+part], t.data[src:src+part])
		copy(b.data[dst:dst+part], t.data[src+part:src+2*part])
		copy(c.data[dst:dst+part], t.data[src+2*part:src+3*part])
	}

	return a, b, c, nil
}

// Stack stacks equal-shaped tensors along a new axis 1: given T tensors
// of shape (B, rest...), the result has shape (B, T, rest...). This is
// how the per-step trace is assembled into the final trajectory tensors.
//
// Contracts:
//   - ts must be non-empty and all elements non-nil with identical shape.
//
// Complexity: O(T·size).
func Stack(ts []*Dense) (*Dense, error) {
	if len(ts) == 0 || ts[0] == nil {
		return nil, ErrNilTensor
	}

	var (
		first = ts[0]
		batch = first.shape[0]
		inner = len(first.data) / batch // elements per batch row
		steps = len(ts)
		i     int
	)
	for i = 1; i < steps; i++ {
		if ts[i] == nil {
			return nil, ErrNilTensor
		}
		if !sameShape(first.shape, ts[i].shape) {
			return nil, ErrDimensionMismatch
		}
	}

	shape := make([]int, 0, first.Rank()+1)
	shape = append(shape, batch, steps)
	shape = append(shape, first.shape[1:]...)
	out, err := NewDense(shape...)
	if err != nil {
		return nil, err
	}

	var b, s int
	for b = 0; b < batch; b++ {
		for s = 0; s < steps; s++ {
			copy(
				out.data[(b*steps+s)*inner:(b*steps+s+1)*inner],
				ts[s].data[b*inner:(b+1)*inner],
			)
		}
	}

	return out, nil
}

// sameShape reports whether two shapes are identical.
func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
