// Package routing: sentinel errors and shared numeric policy.
package routing

import (
	"errors"
	"math"
)

var (
	// ErrBadCoords indicates a coordinate tensor that is not (B, N, 2)
	// with at least two nodes.
	ErrBadCoords = errors.New("routing: coordinates must be (batch, nodes, 2)")

	// ErrBadDemands indicates a demand tensor that does not match the
	// coordinate batch/node extents, carries a non-zero depot demand, or
	// contains a negative, NaN or infinite entry.
	ErrBadDemands = errors.New("routing: invalid demand tensor")

	// ErrBadCapacity indicates a non-positive, NaN or infinite vehicle
	// capacity, or a single demand exceeding it.
	ErrBadCapacity = errors.New("routing: invalid vehicle capacity")

	// ErrIllegalAction indicates a pending action the current mask
	// forbids — an integration bug between decoder and environment.
	ErrIllegalAction = errors.New("routing: action violates the mask")

	// ErrStateMismatch indicates a state whose extents or fields do not
	// belong to this environment instance.
	ErrStateMismatch = errors.New("routing: state does not match environment")
)

// roundScale stabilizes returned route costs to 1e-9, preventing
// cross-platform floating-point drift from leaking into rewards.
const roundScale = 1e9

// round1e9 rounds x to the nearest 1e-9.
func round1e9(x float64) float64 {
	return math.Round(x*roundScale) / roundScale
}

// euclid returns the Euclidean distance between points (x1,y1), (x2,y2).
func euclid(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1

	return math.Sqrt(dx*dx + dy*dy)
}
