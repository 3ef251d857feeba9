// Package attn: sentinel errors and configuration.
package attn

import "errors"

var (
	// ErrBadShape indicates that query/key/value/logit-key shapes do not
	// agree with each other or with the configured embedding dimension.
	ErrBadShape = errors.New("attn: incompatible tensor shapes")

	// ErrHeadSplit indicates an embedding dimension not divisible by the
	// configured number of heads.
	ErrHeadSplit = errors.New("attn: embedding dim not divisible by heads")

	// ErrAllMasked indicates a scoring row whose every candidate is
	// forbidden. This is an environment invariant violation surfaced to
	// the caller, never silently repaired.
	ErrAllMasked = errors.New("attn: all candidates masked")

	// ErrBadMask indicates a mask whose length does not match the
	// expected (batch, starts, nodes) extent.
	ErrBadMask = errors.New("attn: mask length mismatch")

	// ErrBadTemperature indicates a non-positive softmax temperature.
	ErrBadTemperature = errors.New("attn: temperature must be positive")
)

// DefaultTanhClipping bounds the pre-softmax logits to ±10, the
// standard clipping of the attention-model construction heuristic.
// A value of 0 disables clipping.
const DefaultTanhClipping = 10.0

// Config parameterizes a LogitAttention unit.
//
// Fields:
//   - EmbedDim     — width D of queries, keys and values.
//   - NumHeads     — glimpse heads; must divide EmbedDim.
//   - TanhClipping — logit clipping constant C (0 disables).
//   - MaskInner    — apply the forbidden mask inside the glimpse softmax.
//   - MaskLogits   — apply the forbidden mask to the final logits.
type Config struct {
	EmbedDim     int
	NumHeads     int
	TanhClipping float64
	MaskInner    bool
	MaskLogits   bool
}

// DefaultConfig returns the standard configuration for the given
// dimensions: ±10 clipping, masking enabled at both stages.
func DefaultConfig(embedDim, numHeads int) Config {
	return Config{
		EmbedDim:     embedDim,
		NumHeads:     numHeads,
		TanhClipping: DefaultTanhClipping,
		MaskInner:    true,
		MaskLogits:   true,
	}
}
