package tensor_test

import (
	"testing"

	"github.com/katalvlaran/attnroute/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDense_BadShape verifies that empty and non-positive shapes are
// rejected with ErrBadShape.
func TestNewDense_BadShape(t *testing.T) {
	_, err := tensor.NewDense()
	assert.ErrorIs(t, err, tensor.ErrBadShape, "empty shape must error")

	_, err = tensor.NewDense(2, 0, 3)
	assert.ErrorIs(t, err, tensor.ErrBadShape, "zero dimension must error")

	_, err = tensor.NewDense(-1)
	assert.ErrorIs(t, err, tensor.ErrBadShape, "negative dimension must error")
}

// TestDense_AtSet exercises bounds-guarded element access in row-major order.
func TestDense_AtSet(t *testing.T) {
	d, err := tensor.NewDense(2, 3)
	require.NoError(t, err)

	require.NoError(t, d.Set(7.5, 1, 2))
	v, err := d.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 7.5, v)

	// Row-major: element (1,2) is the last of six.
	assert.Equal(t, 7.5, d.Data()[5], "row-major layout places (1,2) at flat index 5")

	_, err = d.At(2, 0)
	assert.ErrorIs(t, err, tensor.ErrOutOfRange, "row out of range")
	err = d.Set(1, 0, 3)
	assert.ErrorIs(t, err, tensor.ErrOutOfRange, "column out of range")
	_, err = d.At(0)
	assert.ErrorIs(t, err, tensor.ErrOutOfRange, "rank mismatch in index list")
}

// TestFromSlice_OwnershipAndMismatch checks the wrapping constructor.
func TestFromSlice_OwnershipAndMismatch(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	d, err := tensor.FromSlice(data, 2, 3)
	require.NoError(t, err)

	v, err := d.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = tensor.FromSlice(data, 2, 2)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch, "length/shape mismatch must error")
}

// TestDense_CloneIsDeep confirms Clone copies storage, not aliases it.
func TestDense_CloneIsDeep(t *testing.T) {
	d, err := tensor.NewDense(2, 2)
	require.NoError(t, err)
	require.NoError(t, d.Set(1.0, 0, 0))

	cp := d.Clone()
	require.NoError(t, cp.Set(9.0, 0, 0))

	v, _ := d.At(0, 0)
	assert.Equal(t, 1.0, v, "mutating the clone must not touch the original")
	assert.False(t, d.Equal(cp), "clone diverged, Equal must be false")
}

// TestDense_Reshape verifies header reshaping shares data and guards size.
func TestDense_Reshape(t *testing.T) {
	d, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)

	r, err := d.Reshape(3, 2)
	require.NoError(t, err)
	v, _ := r.At(2, 1)
	assert.Equal(t, 6.0, v, "reshape preserves row-major order")

	_, err = d.Reshape(4, 2)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch, "element count must be preserved")
}
