// Package tensor provides the dense numeric primitives used by the
// attention decoder: a rank-N row-major float64 tensor, elementwise and
// axis operations, bias-free linear maps, and the starts-major batch
// conversions that underpin multi-start decoding.
//
// Design:
//   - Flat backing storage ([]float64, row-major) for cache friendliness;
//     shape and strides are private and validated at construction.
//   - Strict sentinel errors (ErrBadShape, ErrOutOfRange,
//     ErrDimensionMismatch); public indexers never panic.
//   - Deterministic initialization: linear layers seed from an explicit
//     int64, seed==0 selects a fixed default.
//
// The starts-major layout invariant (see starts.go) is owned by this
// package: flat batch row s·B+b always holds original instance b,
// rollout s. All expansion and folding goes through ExpandStarts,
// CollapseStarts and FlattenStarts; callers must never rearrange the
// batch axis by hand.
package tensor
