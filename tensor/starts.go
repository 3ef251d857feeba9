// Package tensor: starts-major batch conversions for multi-start decoding.
//
// LAYOUT INVARIANT (single source of truth):
//
//	An expanded batch of B original instances and K rollouts stores the
//	pair (instance b, rollout s) at flat batch row s·B + b. The rollout
//	index varies SLOWER than the instance index ("starts-major").
//
// Every expansion, collapse and fold in the module goes through the
// three functions below; no caller rearranges the batch axis inline.
// Divergence between the seeding layout and the per-step fold layout
// would silently misattribute selections across rollouts, so the
// ordering is pinned by dedicated tests rather than reconciled at use
// sites.
package tensor

// StartsInstance maps a flat expanded batch row to its original
// instance index under the starts-major layout: instance = row mod B.
func StartsInstance(row, batch int) int { return row % batch }

// StartsRollout maps a flat expanded batch row to its rollout index
// under the starts-major layout: rollout = row div B.
func StartsRollout(row, batch int) int { return row / batch }

// ExpandStarts replicates a tensor of shape (B, rest...) into
// (K·B, rest...) with starts-major row placement: output row s·B+b is a
// copy of input row b. A factor K <= 1 is a no-op returning a clone, so
// single-start callers need no special casing.
//
// Complexity: O(K·size).
func ExpandStarts(t *Dense, numStarts int) (*Dense, error) {
	if t == nil {
		return nil, ErrNilTensor
	}
	if numStarts <= 1 {
		return t.Clone(), nil
	}

	var (
		batch = t.shape[0]
		inner = len(t.data) / batch
	)
	shape := append([]int(nil), t.shape...)
	shape[0] = numStarts * batch
	out, err := NewDense(shape...)
	if err != nil {
		return nil, err
	}

	var s, b, dst int
	for s = 0; s < numStarts; s++ {
		for b = 0; b < batch; b++ {
			dst = (s*batch + b) * inner
			copy(out.data[dst:dst+inner], t.data[b*inner:(b+1)*inner])
		}
	}

	return out, nil
}

// CollapseStarts separates the starts axis out of an expanded batch:
// (K·B, rest...) becomes (B, K, rest...) where out[b, s] = in[s·B+b].
// A factor K <= 1 inserts a unit starts axis: (B, rest...) → (B, 1, rest...).
//
// Contracts:
//   - numStarts >= 2 requires Dim(0) divisible by numStarts, else ErrBadStarts.
//
// Complexity: O(size).
func CollapseStarts(t *Dense, numStarts int) (*Dense, error) {
	if t == nil {
		return nil, ErrNilTensor
	}
	if numStarts <= 1 {
		shape := make([]int, 0, t.Rank()+1)
		shape = append(shape, t.shape[0], 1)
		shape = append(shape, t.shape[1:]...)

		return t.Reshape(shape...)
	}
	if t.shape[0]%numStarts != 0 {
		return nil, ErrBadStarts
	}

	var (
		batch = t.shape[0] / numStarts
		inner = len(t.data) / t.shape[0]
	)
	shape := make([]int, 0, t.Rank()+1)
	shape = append(shape, batch, numStarts)
	shape = append(shape, t.shape[1:]...)
	out, err := NewDense(shape...)
	if err != nil {
		return nil, err
	}

	var s, b, dst, src int
	for b = 0; b < batch; b++ {
		for s = 0; s < numStarts; s++ {
			dst = (b*numStarts + s) * inner
			src = (s*batch + b) * inner
			copy(out.data[dst:dst+inner], t.data[src:src+inner])
		}
	}

	return out, nil
}

// FlattenStarts folds a separated starts axis back into the batch:
// (B, K, rest...) becomes (K·B, rest...) with out[s·B+b] = in[b, s] —
// the exact inverse of CollapseStarts and therefore the same layout the
// seeding expansion produced.
//
// Complexity: O(size).
func FlattenStarts(t *Dense) (*Dense, error) {
	if t == nil {
		return nil, ErrNilTensor
	}
	if t.Rank() < 2 {
		return nil, ErrBadStarts
	}

	var (
		batch     = t.shape[0]
		numStarts = t.shape[1]
		inner     = len(t.data) / (batch * numStarts)
	)
	shape := make([]int, 0, t.Rank()-1)
	shape = append(shape, numStarts*batch)
	shape = append(shape, t.shape[2:]...)
	out, err := NewDense(shape...)
	if err != nil {
		return nil, err
	}

	var s, b, dst, src int
	for b = 0; b < batch; b++ {
		for s = 0; s < numStarts; s++ {
			dst = (s*batch + b) * inner
			src = (b*numStarts + s) * inner
			copy(out.data[dst:dst+inner], t.data[src:src+inner])
		}
	}

	return out, nil
}
