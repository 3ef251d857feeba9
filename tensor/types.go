// Package tensor: sentinel error set.
// All public functions in this package return these sentinels and tests
// check them via errors.Is. No function panics on user input; panics are
// reserved for programmer errors in private helpers.
package tensor

import "errors"

var (
	// ErrBadShape is returned when a requested shape is invalid
	// (empty shape, or any dimension <= 0).
	ErrBadShape = errors.New("tensor: invalid shape")

	// ErrOutOfRange indicates that an index is outside valid bounds,
	// or that an index list does not match the tensor rank.
	ErrOutOfRange = errors.New("tensor: index out of range")

	// ErrDimensionMismatch indicates incompatible shapes between
	// operands, e.g. Add over different shapes or a Linear applied to
	// an input whose last axis differs from the layer's fan-in.
	ErrDimensionMismatch = errors.New("tensor: dimension mismatch")

	// ErrNilTensor indicates that a nil *Dense was passed where a
	// value is required.
	ErrNilTensor = errors.New("tensor: nil tensor")

	// ErrBadStarts indicates an invalid multi-start expansion factor
	// or a batch axis not divisible by the declared number of starts.
	ErrBadStarts = errors.New("tensor: invalid starts factor")
)
