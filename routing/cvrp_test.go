package routing_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/attnroute/decode"
	"github.com/katalvlaran/attnroute/routing"
	"github.com/katalvlaran/attnroute/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeCustomers returns one instance: depot at the origin, three
// customers each with demand 2.
func threeCustomers(t *testing.T) (*tensor.Dense, *tensor.Dense) {
	t.Helper()
	coords, err := tensor.FromSlice([]float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	}, 1, 4, 2)
	require.NoError(t, err)

	demands, err := tensor.FromSlice([]float64{0, 2, 2, 2}, 1, 4)
	require.NoError(t, err)

	return coords, demands
}

func TestNewCVRP_Validation(t *testing.T) {
	coords, demands := threeCustomers(t)

	_, err := routing.NewCVRP(nil, demands, 3)
	assert.ErrorIs(t, err, routing.ErrBadCoords)

	_, err = routing.NewCVRP(coords, nil, 3)
	assert.ErrorIs(t, err, routing.ErrBadDemands)

	short, err := tensor.FromSlice([]float64{0, 2}, 1, 2)
	require.NoError(t, err)
	_, err = routing.NewCVRP(coords, short, 3)
	assert.ErrorIs(t, err, routing.ErrBadDemands)

	depotDemand, err := tensor.FromSlice([]float64{1, 2, 2, 2}, 1, 4)
	require.NoError(t, err)
	_, err = routing.NewCVRP(coords, depotDemand, 3)
	assert.ErrorIs(t, err, routing.ErrBadDemands)

	negative, err := tensor.FromSlice([]float64{0, -1, 2, 2}, 1, 4)
	require.NoError(t, err)
	_, err = routing.NewCVRP(coords, negative, 3)
	assert.ErrorIs(t, err, routing.ErrBadDemands)

	// A customer no trip could ever serve.
	_, err = routing.NewCVRP(coords, demands, 1)
	assert.ErrorIs(t, err, routing.ErrBadCapacity)

	_, err = routing.NewCVRP(coords, demands, 0)
	assert.ErrorIs(t, err, routing.ErrBadCapacity)
	_, err = routing.NewCVRP(coords, demands, math.Inf(1))
	assert.ErrorIs(t, err, routing.ErrBadCapacity)
}

func TestCVRP_Reset(t *testing.T) {
	coords, demands := threeCustomers(t)
	env, err := routing.NewCVRP(coords, demands, 3)
	require.NoError(t, err)

	td, err := env.Reset()
	require.NoError(t, err)

	assert.Equal(t, 0, td.Int("current")[0])
	assert.False(t, td.Legal(0, 0), "empty trips are never useful")
	assert.True(t, td.Legal(0, 1))
	assert.True(t, td.Legal(0, 2))
	assert.True(t, td.Legal(0, 3))

	remaining, errAt := td.Float("remaining").At(0, 0)
	require.NoError(t, errAt)
	assert.Equal(t, 3.0, remaining)

	// Demands ride along in the state for the embedding strategies.
	d, errAt := td.Float("demand").At(0, 2)
	require.NoError(t, errAt)
	assert.Equal(t, 2.0, d)
}

// TestCVRP_CapacityMasking walks one trip by hand: serving a customer
// eats capacity, infeasible customers drop out of the mask, a depot
// visit restores the full load.
func TestCVRP_CapacityMasking(t *testing.T) {
	coords, demands := threeCustomers(t)
	env, err := routing.NewCVRP(coords, demands, 3)
	require.NoError(t, err)

	td, err := env.Reset()
	require.NoError(t, err)

	// Serve customer 1 (demand 2): remaining drops to 1, nothing fits.
	require.NoError(t, td.SetAction([]int{1}))
	require.NoError(t, env.Step(td))
	remaining, _ := td.Float("remaining").At(0, 0)
	assert.Equal(t, 1.0, remaining)
	assert.True(t, td.Legal(0, 0), "depot reachable away from it")
	assert.False(t, td.Legal(0, 1), "served")
	assert.False(t, td.Legal(0, 2), "demand exceeds remaining")
	assert.False(t, td.Legal(0, 3), "demand exceeds remaining")

	// Return to the depot: capacity restored, depot forbidden again.
	require.NoError(t, td.SetAction([]int{0}))
	require.NoError(t, env.Step(td))
	remaining, _ = td.Float("remaining").At(0, 0)
	assert.Equal(t, 3.0, remaining)
	assert.False(t, td.Legal(0, 0))
	assert.True(t, td.Legal(0, 2))
	assert.True(t, td.Legal(0, 3))
	assert.False(t, td.Done(0))
}

// TestCVRP_DoneRequiresDepotReturn: serving the last customer does not
// finish the row; the trailing depot leg does, and the depot becomes the
// stay action.
func TestCVRP_DoneRequiresDepotReturn(t *testing.T) {
	coords, err := tensor.FromSlice([]float64{0, 0, 1, 0}, 1, 2, 2)
	require.NoError(t, err)
	demands, err := tensor.FromSlice([]float64{0, 1}, 1, 2)
	require.NoError(t, err)
	env, err := routing.NewCVRP(coords, demands, 5)
	require.NoError(t, err)

	td, err := env.Reset()
	require.NoError(t, err)

	require.NoError(t, td.SetAction([]int{1}))
	require.NoError(t, env.Step(td))
	assert.False(t, td.Done(0), "still out in the field")
	assert.True(t, td.Legal(0, 0))

	require.NoError(t, td.SetAction([]int{0}))
	require.NoError(t, env.Step(td))
	assert.True(t, td.Done(0))
	assert.True(t, td.Legal(0, 0), "depot is the stay action")
	assert.False(t, td.Legal(0, 1))

	// Stay is a no-op.
	require.NoError(t, td.SetAction([]int{0}))
	require.NoError(t, env.Step(td))
	assert.True(t, td.Done(0))
}

// TestCVRP_Reward pins the route length of a hand-built solution,
// including the implicit closing depot leg and free trailing stays.
func TestCVRP_Reward(t *testing.T) {
	coords, demands := threeCustomers(t)
	env, err := routing.NewCVRP(coords, demands, 10)
	require.NoError(t, err)

	td, err := env.Reset()
	require.NoError(t, err)

	// 0→1→2→3→0: 1 + √2 + 1 + √2.
	want := -(2 + 2*math.Sqrt2)
	r, err := env.Reward(td, [][]int{{1, 2, 3}})
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.InDelta(t, want, r[0], 1e-9)

	// Trailing depot stays are depot-to-depot legs of length zero.
	r, err = env.Reward(td, [][]int{{1, 2, 3, 0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, want, r[0], 1e-9)
}

// TestCVRP_DecodeGreedy runs the full pipeline with a capacity that
// forces a depot return after every customer: the decoder must thread
// depot legs through the tour and still serve everyone.
func TestCVRP_DecodeGreedy(t *testing.T) {
	coords, demands := threeCustomers(t)
	env, err := routing.NewCVRP(coords, demands, 3)
	require.NoError(t, err)

	d, err := decode.New(env, testDim, testHeads)
	require.NoError(t, err)

	td, err := env.Reset()
	require.NoError(t, err)

	tr, err := d.Decode(td, embeddingsFor(t, coords), decode.Options{
		DecodeType: decode.Greedy,
		CalcReward: true,
	})
	require.NoError(t, err)

	assert.True(t, tr.State.AllDone())
	assert.Equal(t, 0, tr.State.Int("current")[0], "ends at the depot")

	// Every customer served exactly once.
	var (
		visits = make([]int, 4)
		s      int
	)
	for s = 0; s < tr.Steps(); s++ {
		visits[tr.Actions[0][s]]++
	}
	assert.Equal(t, 1, visits[1])
	assert.Equal(t, 1, visits[2])
	assert.Equal(t, 1, visits[3])

	require.Len(t, tr.Reward, 1)
	assert.Negative(t, tr.Reward[0])
}

// TestCVRP_DecodeMultistart: the dynamic embedding path (per-rollout
// corrections) must keep rollouts independent and starts-major.
func TestCVRP_DecodeMultistart(t *testing.T) {
	coords, demands := threeCustomers(t)
	env, err := routing.NewCVRP(coords, demands, 10)
	require.NoError(t, err)

	d, err := decode.New(env, testDim, testHeads)
	require.NoError(t, err)

	td, err := env.Reset()
	require.NoError(t, err)

	k := 3
	tr, err := d.Decode(td, embeddingsFor(t, coords), decode.Options{
		DecodeType: decode.MultistartGreedy,
		NumStarts:  k,
		CalcReward: true,
	})
	require.NoError(t, err)

	require.Len(t, tr.Actions, k)
	require.Len(t, tr.Reward, k)
	assert.True(t, tr.State.AllDone())

	var (
		row, s int
		visits []int
	)
	for row = 0; row < k; row++ {
		// The depot is forbidden at reset, so rollout s opens at customer s+1.
		assert.Equal(t, row+1, tr.Actions[row][0], "row %d start", row)

		visits = make([]int, 4)
		for s = 0; s < tr.Steps(); s++ {
			visits[tr.Actions[row][s]]++
		}
		assert.Equal(t, 1, visits[1], "row %d", row)
		assert.Equal(t, 1, visits[2], "row %d", row)
		assert.Equal(t, 1, visits[3], "row %d", row)
		assert.Negative(t, tr.Reward[row])
	}
}

// TestCVRP_DecodeSamplingDeterminism: one seed, one trajectory, dynamic
// corrections included.
func TestCVRP_DecodeSamplingDeterminism(t *testing.T) {
	coords, demands := threeCustomers(t)
	env, err := routing.NewCVRP(coords, demands, 4)
	require.NoError(t, err)

	d, err := decode.New(env, testDim, testHeads)
	require.NoError(t, err)

	run := func() *decode.Trajectory {
		td, rerr := env.Reset()
		require.NoError(t, rerr)
		tr, derr := d.Decode(td, embeddingsFor(t, coords), decode.Options{
			DecodeType: decode.Sampling,
			Seed:       99,
		})
		require.NoError(t, derr)

		return tr
	}

	a, b := run(), run()
	assert.Equal(t, a.Actions, b.Actions)
	assert.True(t, a.LogProbs.Equal(b.LogProbs))
}
