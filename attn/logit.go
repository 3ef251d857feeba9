// Package attn: LogitAttention, the default scoring unit.
//
// Two-stage mechanism:
//
//	Stage 1 (glimpse): per-head scaled dot-product attention of the step
//	query against the glimpse keys; the attended glimpse values are
//	concatenated across heads and passed through a bias-free output
//	projection, refining the query.
//	Stage 2 (logit): single-head dot product of the refined query
//	against the logit keys, scaled by 1/sqrt(D), optionally tanh-clipped
//	to ±C, masked, temperature-divided and log-softmaxed over nodes.
package attn

import (
	"math"

	"github.com/katalvlaran/attnroute/tensor"
)

// LogitAttention scores candidate nodes for the decoder.
// It holds only the glimpse output projection; all step-varying inputs
// arrive as arguments, so one unit serves every step of a decode call.
type LogitAttention struct {
	cfg     Config
	headDim int
	outProj *tensor.Linear
}

// NewLogitAttention validates cfg and builds the output projection.
// The seed drives deterministic weight initialization (seed==0 selects
// the fixed default stream, matching tensor.NewLinear policy).
//
// Errors: ErrHeadSplit when EmbedDim % NumHeads != 0, ErrBadShape for
// non-positive dimensions.
func NewLogitAttention(cfg Config, seed int64) (*LogitAttention, error) {
	if cfg.EmbedDim <= 0 || cfg.NumHeads <= 0 {
		return nil, ErrBadShape
	}
	if cfg.EmbedDim%cfg.NumHeads != 0 {
		return nil, ErrHeadSplit
	}

	proj, err := tensor.NewLinear(cfg.EmbedDim, cfg.EmbedDim, seed)
	if err != nil {
		return nil, err
	}

	return &LogitAttention{
		cfg:     cfg,
		headDim: cfg.EmbedDim / cfg.NumHeads,
		outProj: proj,
	}, nil
}

// OutProj exposes the glimpse output projection for weight loading.
func (a *LogitAttention) OutProj() *tensor.Linear { return a.outProj }

// Score produces masked log-probabilities over candidate nodes.
//
// Shapes:
//   - q:       (B, S, D) — one query per instance per rollout.
//   - glimpseK, glimpseV, logitK: (B, N, D).
//   - mask:    len B·S·N, row-major (b, s, n); true = forbidden.
//   - temp:    softmax temperature; 0 means 1.0.
//
// Returns log-probabilities of shape (B, S, N).
//
// Errors: ErrBadShape on rank/extent disagreement, ErrBadMask on mask
// length mismatch, ErrBadTemperature on temp < 0, ErrAllMasked when a
// row forbids every node.
//
// Complexity: O(B·S·N·D) time, O(N + D) scratch space.
func (a *LogitAttention) Score(
	q, glimpseK, glimpseV, logitK *tensor.Dense,
	mask []bool,
	temp float64,
) (*tensor.Dense, error) {
	if err := a.checkShapes(q, glimpseK, glimpseV, logitK); err != nil {
		return nil, err
	}
	if temp < 0 {
		return nil, ErrBadTemperature
	}
	if temp == 0 {
		temp = 1.0
	}

	var (
		batch  = q.Dim(0)
		starts = q.Dim(1)
		nodes  = glimpseK.Dim(1)
		dim    = a.cfg.EmbedDim
	)
	if len(mask) != batch*starts*nodes {
		return nil, ErrBadMask
	}

	out, err := tensor.NewDense(batch, starts, nodes)
	if err != nil {
		return nil, err
	}

	var (
		qd = q.Data()
		kd = glimpseK.Data()
		vd = glimpseV.Data()
		od = out.Data()

		scores  = make([]float64, nodes) // per-head attention scratch
		glimpse = make([]float64, dim)   // concatenated head outputs

		invSqrtHead = 1.0 / math.Sqrt(float64(a.headDim))
		invSqrtDim  = 1.0 / math.Sqrt(float64(dim))

		b, s, h, n, d int
		qOff, mOff    int
		hOff          int
		acc           float64
	)

	// glimpseRow is reused as a (1, D) tensor header for the projection.
	glimpseRow, err := tensor.FromSlice(glimpse, 1, dim)
	if err != nil {
		return nil, err
	}

	for b = 0; b < batch; b++ {
		for s = 0; s < starts; s++ {
			qOff = (b*starts + s) * dim
			mOff = (b*starts + s) * nodes

			// Stage 1: glimpse, head by head.
			for h = 0; h < a.cfg.NumHeads; h++ {
				hOff = h * a.headDim
				for n = 0; n < nodes; n++ {
					if a.cfg.MaskInner && mask[mOff+n] {
						scores[n] = math.Inf(-1)
						continue
					}
					acc = 0
					for d = 0; d < a.headDim; d++ {
						acc += qd[qOff+hOff+d] * kd[(b*nodes+n)*dim+hOff+d]
					}
					scores[n] = acc * invSqrtHead
				}
				if !softmaxInPlace(scores) {
					return nil, ErrAllMasked
				}
				for d = 0; d < a.headDim; d++ {
					acc = 0
					for n = 0; n < nodes; n++ {
						acc += scores[n] * vd[(b*nodes+n)*dim+hOff+d]
					}
					glimpse[hOff+d] = acc
				}
			}

			// Refine the query through the output projection.
			refined, perr := a.outProj.Apply(glimpseRow)
			if perr != nil {
				return nil, perr
			}
			rd := refined.Data()

			// Stage 2: single-head logits over the logit keys.
			ld := logitK.Data()
			for n = 0; n < nodes; n++ {
				acc = 0
				for d = 0; d < dim; d++ {
					acc += rd[d] * ld[(b*nodes+n)*dim+d]
				}
				acc *= invSqrtDim
				if a.cfg.TanhClipping > 0 {
					acc = a.cfg.TanhClipping * math.Tanh(acc)
				}
				if a.cfg.MaskLogits && mask[mOff+n] {
					acc = math.Inf(-1)
				}
				od[mOff+n] = acc / temp
			}
			if !logSoftmaxInPlace(od[mOff : mOff+nodes]) {
				return nil, ErrAllMasked
			}
		}
	}

	return out, nil
}

// checkShapes verifies rank and extent agreement between the four
// tensors and the configured embedding dimension.
func (a *LogitAttention) checkShapes(q, k, v, l *tensor.Dense) error {
	if q == nil || k == nil || v == nil || l == nil {
		return ErrBadShape
	}
	if q.Rank() != 3 || k.Rank() != 3 || v.Rank() != 3 || l.Rank() != 3 {
		return ErrBadShape
	}

	var (
		batch = q.Dim(0)
		nodes = k.Dim(1)
		dim   = a.cfg.EmbedDim
	)
	if q.Dim(2) != dim {
		return ErrBadShape
	}
	for _, t := range []*tensor.Dense{k, v, l} {
		if t.Dim(0) != batch || t.Dim(1) != nodes || t.Dim(2) != dim {
			return ErrBadShape
		}
	}

	return nil
}
