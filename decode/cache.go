// Package decode: the precomputed projection cache.
//
// The node projections (glimpse key, glimpse value, logit key) and the
// graph-level context are computed exactly once per decode call and
// reused by every step — the central performance optimization of the
// attention decoder. The cache is immutable after construction: fields
// are unexported, accessors hand out the live tensors, and every step
// combines them ADDITIVELY into fresh tensors, never in place.
package decode

import "github.com/katalvlaran/attnroute/tensor"

// PrecomputedCache holds the step-invariant tensors of one decode call.
//
// Shapes, for B instances, N nodes, width D and K effective starts:
//   - nodeEmbeddings: (B, N, D) — the original, unprojected embeddings.
//   - graphContext:   (B, D), or (B, K, D) when K > 1 (replicated once
//     at precompute so each rollout owns a slice; replication is a data
//     copy, never a re-projection).
//   - glimpseKey, glimpseVal, logitKey: (B, N, D).
type PrecomputedCache struct {
	nodeEmbeddings *tensor.Dense
	graphContext   *tensor.Dense
	glimpseKey     *tensor.Dense
	glimpseVal     *tensor.Dense
	logitKey       *tensor.Dense
}

// NodeEmbeddings returns the original node embeddings.
func (c *PrecomputedCache) NodeEmbeddings() *tensor.Dense { return c.nodeEmbeddings }

// GraphContext returns the projected graph-level context.
func (c *PrecomputedCache) GraphContext() *tensor.Dense { return c.graphContext }

// GlimpseKey returns the fixed glimpse keys.
func (c *PrecomputedCache) GlimpseKey() *tensor.Dense { return c.glimpseKey }

// GlimpseVal returns the fixed glimpse values.
func (c *PrecomputedCache) GlimpseVal() *tensor.Dense { return c.glimpseVal }

// LogitKey returns the fixed logit keys.
func (c *PrecomputedCache) LogitKey() *tensor.Dense { return c.logitKey }

// Snapshot deep-copies the cache. Tests use it to assert bit-identity
// across steps (the never-recomputed guarantee).
func (c *PrecomputedCache) Snapshot() *PrecomputedCache {
	return &PrecomputedCache{
		nodeEmbeddings: c.nodeEmbeddings.Clone(),
		graphContext:   c.graphContext.Clone(),
		glimpseKey:     c.glimpseKey.Clone(),
		glimpseVal:     c.glimpseVal.Clone(),
		logitKey:       c.logitKey.Clone(),
	}
}

// Equal reports bit-identical equality with another cache.
func (c *PrecomputedCache) Equal(o *PrecomputedCache) bool {
	if o == nil {
		return false
	}

	return c.nodeEmbeddings.Equal(o.nodeEmbeddings) &&
		c.graphContext.Equal(o.graphContext) &&
		c.glimpseKey.Equal(o.glimpseKey) &&
		c.glimpseVal.Equal(o.glimpseVal) &&
		c.logitKey.Equal(o.logitKey)
}

// Precompute runs the fixed-context projection stage (§ one-time work):
// a fused bias-free D→3D node projection chunked into the three key/value
// tensors, and the mean-pooled, projected graph context, replicated
// across rollouts when numStarts > 1.
//
// Contracts:
//   - embeddings must be rank 3 with last axis == the decoder width,
//     else ErrShapeMismatch.
//
// Complexity: O(B·N·D²) time — paid once per decode call.
func (d *Decoder) Precompute(embeddings *tensor.Dense, numStarts int) (*PrecomputedCache, error) {
	if embeddings == nil {
		return nil, ErrNilState
	}
	if embeddings.Rank() != 3 || embeddings.Dim(2) != d.embedDim {
		return nil, ErrShapeMismatch
	}

	// Fused projection, then split into (glimpse key | glimpse value | logit key).
	fused, err := d.projNodes.Apply(embeddings)
	if err != nil {
		return nil, err
	}
	gk, gv, lk, err := tensor.Chunk3(fused)
	if err != nil {
		return nil, err
	}

	// Graph-level summary: mean over nodes, projected to width D.
	mean, err := tensor.MeanAxis1(embeddings)
	if err != nil {
		return nil, err
	}
	ctx, err := d.projContext.Apply(mean)
	if err != nil {
		return nil, err
	}

	// Multi-start: give each rollout its own (initially identical) copy.
	// Expand-then-collapse keeps the starts-major layout authority with
	// the tensor package instead of an inline reshape.
	if numStarts > 1 {
		exp, eerr := tensor.ExpandStarts(ctx, numStarts)
		if eerr != nil {
			return nil, eerr
		}
		ctx, err = tensor.CollapseStarts(exp, numStarts)
		if err != nil {
			return nil, err
		}
	}

	return &PrecomputedCache{
		nodeEmbeddings: embeddings,
		graphContext:   ctx,
		glimpseKey:     gk,
		glimpseVal:     gv,
		logitKey:       lk,
	}, nil
}
