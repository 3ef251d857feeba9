package attn_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/attnroute/attn"
	"github.com/katalvlaran/attnroute/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUnit builds a deterministic 1-head unit over dim-4 embeddings with
// identity output projection, so logits are directly inspectable.
func newUnit(t *testing.T, clipping float64) *attn.LogitAttention {
	t.Helper()

	cfg := attn.DefaultConfig(4, 1)
	cfg.TanhClipping = clipping
	unit, err := attn.NewLogitAttention(cfg, 0)
	require.NoError(t, err)

	// Identity out-projection: refined query == glimpse.
	id := make([]float64, 16)
	for i := 0; i < 4; i++ {
		id[i*4+i] = 1
	}
	require.NoError(t, unit.OutProj().SetWeights(id))

	return unit
}

// uniformInputs returns q (1,1,4) and k/v/logitK (1,N,4) with constant
// values, making every node equally attractive.
func uniformInputs(t *testing.T, nodes int) (q, k, v, l *tensor.Dense) {
	t.Helper()

	q, err := tensor.FromSlice([]float64{1, 1, 1, 1}, 1, 1, 4)
	require.NoError(t, err)

	flat := make([]float64, nodes*4)
	for i := range flat {
		flat[i] = 0.5
	}
	k, err = tensor.FromSlice(append([]float64(nil), flat...), 1, nodes, 4)
	require.NoError(t, err)
	v, err = tensor.FromSlice(append([]float64(nil), flat...), 1, nodes, 4)
	require.NoError(t, err)
	l, err = tensor.FromSlice(append([]float64(nil), flat...), 1, nodes, 4)
	require.NoError(t, err)

	return q, k, v, l
}

// TestNewLogitAttention_HeadSplit rejects dims not divisible by heads.
func TestNewLogitAttention_HeadSplit(t *testing.T) {
	_, err := attn.NewLogitAttention(attn.DefaultConfig(6, 4), 0)
	assert.ErrorIs(t, err, attn.ErrHeadSplit)

	_, err = attn.NewLogitAttention(attn.DefaultConfig(0, 1), 0)
	assert.ErrorIs(t, err, attn.ErrBadShape)
}

// TestScore_UniformDistribution verifies normalization: with identical
// nodes and no masking, log-probs are log(1/N) each.
func TestScore_UniformDistribution(t *testing.T) {
	unit := newUnit(t, attn.DefaultTanhClipping)
	q, k, v, l := uniformInputs(t, 3)
	mask := make([]bool, 3)

	lp, err := unit.Score(q, k, v, l, mask, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 3}, lp.Shape())

	want := math.Log(1.0 / 3.0)
	var sum float64
	for n := 0; n < 3; n++ {
		got, errAt := lp.At(0, 0, n)
		require.NoError(t, errAt)
		assert.InDelta(t, want, got, 1e-12, "uniform inputs must score uniformly")
		sum += math.Exp(got)
	}
	assert.InDelta(t, 1.0, sum, 1e-12, "probabilities must sum to one")
}

// TestScore_MaskForbids verifies forbidden nodes get -Inf log-prob and
// the remainder renormalizes over legal nodes only.
func TestScore_MaskForbids(t *testing.T) {
	unit := newUnit(t, attn.DefaultTanhClipping)
	q, k, v, l := uniformInputs(t, 3)
	mask := []bool{false, true, false}

	lp, err := unit.Score(q, k, v, l, mask, 0)
	require.NoError(t, err)

	banned, _ := lp.At(0, 0, 1)
	assert.True(t, math.IsInf(banned, -1), "forbidden node must be -Inf")

	p0, _ := lp.At(0, 0, 0)
	p2, _ := lp.At(0, 0, 2)
	assert.InDelta(t, 1.0, math.Exp(p0)+math.Exp(p2), 1e-12,
		"legal probabilities must renormalize to one")
}

// TestScore_AllMasked surfaces ErrAllMasked instead of guessing.
func TestScore_AllMasked(t *testing.T) {
	unit := newUnit(t, attn.DefaultTanhClipping)
	q, k, v, l := uniformInputs(t, 3)
	mask := []bool{true, true, true}

	_, err := unit.Score(q, k, v, l, mask, 0)
	assert.ErrorIs(t, err, attn.ErrAllMasked)
}

// TestScore_ClippingBoundsLogits checks that with clipping C, the gap
// between any two finite logits never exceeds 2·C before normalization;
// probabilities therefore stay bounded away from {0, 1}.
func TestScore_ClippingBoundsLogits(t *testing.T) {
	unit := newUnit(t, 1.0) // tight clipping ±1

	q, err := tensor.FromSlice([]float64{10, 10, 10, 10}, 1, 1, 4)
	require.NoError(t, err)
	// One enormous node, one tiny: unclipped logits would saturate.
	kv := []float64{100, 100, 100, 100, 0.001, 0.001, 0.001, 0.001}
	k, _ := tensor.FromSlice(append([]float64(nil), kv...), 1, 2, 4)
	v, _ := tensor.FromSlice(append([]float64(nil), kv...), 1, 2, 4)
	l, _ := tensor.FromSlice(append([]float64(nil), kv...), 1, 2, 4)

	lp, err := unit.Score(q, k, v, l, make([]bool, 2), 0)
	require.NoError(t, err)

	p0, _ := lp.At(0, 0, 0)
	p1, _ := lp.At(0, 0, 1)
	assert.LessOrEqual(t, p0-p1, 2.0+1e-9, "logit gap bounded by 2·C")
	assert.Greater(t, math.Exp(p1), 0.1, "clipping keeps the weak node selectable")
}

// TestScore_TemperatureFlattens checks higher temperature moves the
// distribution toward uniform.
func TestScore_TemperatureFlattens(t *testing.T) {
	unit := newUnit(t, 0) // no clipping, keep raw contrast

	q, _ := tensor.FromSlice([]float64{1, 0, 0, 0}, 1, 1, 4)
	kv := []float64{4, 0, 0, 0, 0, 0, 0, 0}
	k, _ := tensor.FromSlice(append([]float64(nil), kv...), 1, 2, 4)
	v, _ := tensor.FromSlice(append([]float64(nil), kv...), 1, 2, 4)
	l, _ := tensor.FromSlice(append([]float64(nil), kv...), 1, 2, 4)
	mask := make([]bool, 2)

	cold, err := unit.Score(q, k, v, l, mask, 1.0)
	require.NoError(t, err)
	hot, err := unit.Score(q, k, v, l, mask, 10.0)
	require.NoError(t, err)

	c0, _ := cold.At(0, 0, 0)
	h0, _ := hot.At(0, 0, 0)
	assert.Greater(t, math.Exp(c0), math.Exp(h0),
		"hot softmax must flatten the favorite")

	_, err = unit.Score(q, k, v, l, mask, -1)
	assert.ErrorIs(t, err, attn.ErrBadTemperature)
}

// TestScore_ShapeAndMaskGuards exercises the contract errors.
func TestScore_ShapeAndMaskGuards(t *testing.T) {
	unit := newUnit(t, attn.DefaultTanhClipping)
	q, k, v, l := uniformInputs(t, 3)

	_, err := unit.Score(q, k, v, l, make([]bool, 2), 0)
	assert.ErrorIs(t, err, attn.ErrBadMask)

	wrong, _ := tensor.NewDense(1, 3, 6)
	_, err = unit.Score(q, wrong, v, l, make([]bool, 3), 0)
	assert.ErrorIs(t, err, attn.ErrBadShape)

	rank2, _ := tensor.NewDense(1, 4)
	_, err = unit.Score(rank2, k, v, l, make([]bool, 3), 0)
	assert.ErrorIs(t, err, attn.ErrBadShape)
}

// TestScore_MultiStartShape checks S>1 queries score independently.
func TestScore_MultiStartShape(t *testing.T) {
	unit := newUnit(t, attn.DefaultTanhClipping)
	_, k, v, l := uniformInputs(t, 3)

	q, err := tensor.NewDense(1, 2, 4)
	require.NoError(t, err)
	mask := []bool{
		false, true, true, // rollout 0: only node 0 legal
		true, false, false, // rollout 1: nodes 1,2 legal
	}

	lp, err := unit.Score(q, k, v, l, mask, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, lp.Shape())

	v00, _ := lp.At(0, 0, 0)
	assert.InDelta(t, 0.0, v00, 1e-12, "sole legal node has probability one")
	v11, _ := lp.At(0, 1, 1)
	v12, _ := lp.At(0, 1, 2)
	assert.InDelta(t, 1.0, math.Exp(v11)+math.Exp(v12), 1e-12)
	v10, _ := lp.At(0, 1, 0)
	assert.True(t, math.IsInf(v10, -1))
}
