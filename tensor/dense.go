// Package tensor: Dense, the concrete rank-N row-major tensor.
// Dense stores elements in a flat slice for performance and cache
// friendliness; shape and strides are computed once at construction and
// never change for the lifetime of the value.
package tensor

import (
	"fmt"
	"strings"
)

// Dense is a row-major tensor of float64 values.
// shape holds the dimension sizes, strides the row-major step per axis,
// and data the len(shape)-fold product of elements.
type Dense struct {
	shape   []int
	strides []int
	data    []float64
}

// NewDense creates a zero-initialized tensor with the given shape.
// Stage 1 (Validate): every dimension must be > 0 and at least one axis
// must be present. Stage 2 (Prepare): compute strides, allocate storage.
//
// Complexity: O(prod(shape)) time and memory.
func NewDense(shape ...int) (*Dense, error) {
	size, strides, err := checkShape(shape)
	if err != nil {
		return nil, err
	}

	return &Dense{
		shape:   append([]int(nil), shape...),
		strides: strides,
		data:    make([]float64, size),
	}, nil
}

// FromSlice wraps an existing flat slice as a tensor of the given shape.
// The slice is NOT copied; the caller transfers ownership. Returns
// ErrDimensionMismatch when len(data) != prod(shape).
//
// Complexity: O(rank).
func FromSlice(data []float64, shape ...int) (*Dense, error) {
	size, strides, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, ErrDimensionMismatch
	}

	return &Dense{
		shape:   append([]int(nil), shape...),
		strides: strides,
		data:    data,
	}, nil
}

// checkShape validates a shape and returns its total size and row-major
// strides. Shared by every constructor so the invariants live in one place.
func checkShape(shape []int) (int, []int, error) {
	if len(shape) == 0 {
		return 0, nil, ErrBadShape
	}

	var (
		size    = 1
		strides = make([]int, len(shape))
		i       int
	)
	for i = range shape {
		if shape[i] <= 0 {
			return 0, nil, ErrBadShape
		}
		size *= shape[i]
	}
	// Row-major: last axis is contiguous.
	stride := 1
	for i = len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}

	return size, strides, nil
}

// Rank returns the number of axes.
func (t *Dense) Rank() int { return len(t.shape) }

// Dim returns the size of axis i, or 0 when i is out of range.
func (t *Dense) Dim(i int) int {
	if i < 0 || i >= len(t.shape) {
		return 0
	}

	return t.shape[i]
}

// Shape returns a copy of the dimension sizes.
func (t *Dense) Shape() []int { return append([]int(nil), t.shape...) }

// Size returns the total number of elements.
func (t *Dense) Size() int { return len(t.data) }

// Data exposes the flat backing slice in row-major order.
// Mutating it mutates the tensor; hot paths inside this module use it
// deliberately, external callers should prefer At/Set.
func (t *Dense) Data() []float64 { return t.data }

// offsetOf computes the flat index for idx or returns ErrOutOfRange.
// Complexity: O(rank).
func (t *Dense) offsetOf(idx []int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, ErrOutOfRange
	}

	var (
		off int
		i   int
	)
	for i = range idx {
		if idx[i] < 0 || idx[i] >= t.shape[i] {
			return 0, ErrOutOfRange
		}
		off += idx[i] * t.strides[i]
	}

	return off, nil
}

// At retrieves the element at the given multi-index.
// Complexity: O(rank).
func (t *Dense) At(idx ...int) (float64, error) {
	off, err := t.offsetOf(idx)
	if err != nil {
		return 0, fmt.Errorf("Dense.At%v: %w", idx, err)
	}

	return t.data[off], nil
}

// Set assigns v at the given multi-index.
// Complexity: O(rank).
func (t *Dense) Set(v float64, idx ...int) error {
	off, err := t.offsetOf(idx)
	if err != nil {
		return fmt.Errorf("Dense.Set%v: %w", idx, err)
	}
	t.data[off] = v

	return nil
}

// Clone returns a deep copy.
// Complexity: O(size) time and memory.
func (t *Dense) Clone() *Dense {
	cp := make([]float64, len(t.data))
	copy(cp, t.data)

	return &Dense{
		shape:   append([]int(nil), t.shape...),
		strides: append([]int(nil), t.strides...),
		data:    cp,
	}
}

// Equal reports whether o has the same shape and bit-identical contents.
// Used by tests to assert the precomputed cache is never recomputed.
func (t *Dense) Equal(o *Dense) bool {
	if o == nil || len(t.shape) != len(o.shape) {
		return false
	}
	var i int
	for i = range t.shape {
		if t.shape[i] != o.shape[i] {
			return false
		}
	}
	for i = range t.data {
		if t.data[i] != o.data[i] {
			return false
		}
	}

	return true
}

// Reshape returns a tensor header with the given shape sharing the same
// backing data. Returns ErrDimensionMismatch when the element counts
// differ. The result aliases t; mutate with care.
//
// Complexity: O(rank).
func (t *Dense) Reshape(shape ...int) (*Dense, error) {
	size, strides, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if size != len(t.data) {
		return nil, ErrDimensionMismatch
	}

	return &Dense{
		shape:   append([]int(nil), shape...),
		strides: strides,
		data:    t.data,
	}, nil
}

// String implements fmt.Stringer for debugging: shape prefix plus the
// flat contents, truncated for large tensors.
func (t *Dense) String() string {
	const maxShown = 16

	var b strings.Builder
	fmt.Fprintf(&b, "Dense%v[", t.shape)
	var i int
	for i = 0; i < len(t.data) && i < maxShown; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%g", t.data[i])
	}
	if len(t.data) > maxShown {
		b.WriteString(", …")
	}
	b.WriteString("]")

	return b.String()
}
