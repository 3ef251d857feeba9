// Package routing: the Capacitated Vehicle Routing environment.
//
// Node 0 is the depot; nodes 1..N-1 are customers with demands. One
// vehicle of fixed capacity serves customers in trips: visiting the
// depot restores full capacity. A customer is legal while unserved and
// its demand fits the remaining capacity; the depot is legal whenever
// the vehicle is not already parked there. The row is done once every
// customer is served and the vehicle has returned to the depot, where
// it keeps the depot as its stay action.
//
// State fields (all owned by this environment):
//
//	ints["current"]      — vehicle position per row.
//	floats["remaining"]  — (B*, 1) remaining capacity per row.
//	floats["served"]     — (B*, N) 0/1 served indicator.
//	floats["demand"]     — (B*, N) per-node demand, replicated so the
//	                       context/dynamic strategies can read it
//	                       without knowing the environment.
package routing

import (
	"math"

	"github.com/katalvlaran/attnroute/decode"
	"github.com/katalvlaran/attnroute/tensor"
)

// EnvNameCVRP is the registry key of the CVRP environment family.
const EnvNameCVRP = "cvrp"

// CVRP is a batched capacitated vehicle routing environment.
type CVRP struct {
	coords   *tensor.Dense // (B, N, 2), node 0 = depot
	demands  *tensor.Dense // (B, N), demand[.,0] == 0
	capacity float64
	batch    int
	nodes    int
}

// NewCVRP validates the instance tensors and capacity.
//
// Contracts:
//   - coords is (B, N, 2) finite with N >= 2 (depot plus one customer).
//   - demands is (B, N), finite, non-negative, zero at the depot, and
//     no single demand may exceed the capacity (else the customer could
//     never be served).
//   - capacity is finite and positive.
func NewCVRP(coords, demands *tensor.Dense, capacity float64) (*CVRP, error) {
	if coords == nil || coords.Rank() != 3 || coords.Dim(2) != 2 || coords.Dim(1) < 2 {
		return nil, ErrBadCoords
	}
	if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity <= 0 {
		return nil, ErrBadCapacity
	}

	var (
		batch = coords.Dim(0)
		nodes = coords.Dim(1)
	)
	if demands == nil || demands.Rank() != 2 ||
		demands.Dim(0) != batch || demands.Dim(1) != nodes {
		return nil, ErrBadDemands
	}

	var (
		dd   = demands.Data()
		b, n int
		d    float64
	)
	for b = 0; b < batch; b++ {
		for n = 0; n < nodes; n++ {
			d = dd[b*nodes+n]
			if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
				return nil, ErrBadDemands
			}
			if n == 0 && d != 0 {
				return nil, ErrBadDemands
			}
			if d > capacity {
				return nil, ErrBadCapacity
			}
		}
	}

	return &CVRP{
		coords:   coords,
		demands:  demands,
		capacity: capacity,
		batch:    batch,
		nodes:    nodes,
	}, nil
}

// Name implements decode.Env.
func (e *CVRP) Name() string { return EnvNameCVRP }

// Capacity returns the vehicle capacity.
func (e *CVRP) Capacity() float64 { return e.capacity }

// Reset creates the initial state: the vehicle is at the depot with
// full capacity, every customer unserved. The depot itself starts
// forbidden (an empty trip is never useful).
func (e *CVRP) Reset() (*decode.State, error) {
	td, err := decode.NewState(e.batch, e.nodes)
	if err != nil {
		return nil, err
	}

	var (
		current = make([]int, e.batch)
		b       int
	)
	for b = 0; b < e.batch; b++ {
		current[b] = 0
		td.SetLegal(b, 0, false)
	}
	td.SetInt("current", current)

	remaining, err := tensor.NewDense(e.batch, 1)
	if err != nil {
		return nil, err
	}
	for b = 0; b < e.batch; b++ {
		remaining.Data()[b] = e.capacity
	}
	td.SetFloat("remaining", remaining)

	served, err := tensor.NewDense(e.batch, e.nodes)
	if err != nil {
		return nil, err
	}
	td.SetFloat("served", served)

	// Demands travel with the state so the context and dynamic
	// strategies can read them; replication under multi-start expansion
	// comes for free.
	td.SetFloat("demand", e.demands.Clone())

	return td, nil
}

// Step implements decode.Env: apply each row's pending visit, update
// remaining capacity and the served set, and rebuild the row's mask.
func (e *CVRP) Step(td *decode.State) error {
	if td == nil || td.NumNodes() != e.nodes {
		return ErrStateMismatch
	}

	var (
		current   = td.Int("current")
		remaining = td.Float("remaining")
		served    = td.Float("served")
	)
	if current == nil || remaining == nil || served == nil {
		return ErrStateMismatch
	}

	var (
		batch     = td.BatchSize()
		rd        = remaining.Data()
		sd        = served.Data()
		dd        = e.demands.Data()
		b, n      int
		a         int
		inst      int
		allServed bool
	)
	for b = 0; b < batch; b++ {
		if td.Done(b) {
			continue
		}

		a = td.Action(b)
		if !td.Legal(b, a) {
			return ErrIllegalAction
		}
		inst = tensor.StartsInstance(b, e.batch)

		if a == 0 {
			// Return to the depot: capacity restored.
			rd[b] = e.capacity
		} else {
			sd[b*e.nodes+a] = 1
			rd[b] -= dd[inst*e.nodes+a]
		}
		current[b] = a

		// Done once every customer is served and the vehicle is home.
		allServed = true
		for n = 1; n < e.nodes; n++ {
			if sd[b*e.nodes+n] == 0 {
				allServed = false
				break
			}
		}
		if allServed && a == 0 {
			td.SetDone(b, true)
		}

		e.remask(td, b, inst, rd[b], sd)
	}

	return nil
}

// remask rebuilds row b's action mask from the served set and the
// remaining capacity. Done rows keep the depot as their only (stay)
// action; active rows parked at the depot must leave it.
func (e *CVRP) remask(td *decode.State, b, inst int, remaining float64, sd []float64) {
	var (
		dd = e.demands.Data()
		n  int
	)

	if td.Done(b) {
		for n = 0; n < e.nodes; n++ {
			td.SetLegal(b, n, n == 0)
		}

		return
	}

	td.SetLegal(b, 0, td.Int("current")[b] != 0)
	for n = 1; n < e.nodes; n++ {
		td.SetLegal(b, n, sd[b*e.nodes+n] == 0 && dd[inst*e.nodes+n] <= remaining)
	}
}

// Reward implements decode.Env: negative total route length, starting
// and ending at the depot. Trailing stay actions of finished rows add
// zero (depot to depot). Stabilized to 1e-9.
func (e *CVRP) Reward(td *decode.State, actions [][]int) ([]float64, error) {
	if td == nil || len(actions) != td.BatchSize() {
		return nil, ErrStateMismatch
	}

	var (
		batch = td.BatchSize()
		out   = make([]float64, batch)
		b, t  int
		inst  int
		sum   float64
		prev  int
	)
	for b = 0; b < batch; b++ {
		inst = tensor.StartsInstance(b, e.batch)

		// Route starts at the depot.
		prev = 0
		sum = 0
		for t = 0; t < len(actions[b]); t++ {
			sum += e.dist(inst, prev, actions[b][t])
			prev = actions[b][t]
		}
		// And ends there.
		sum += e.dist(inst, prev, 0)
		out[b] = -round1e9(sum)
	}

	return out, nil
}

// dist returns the Euclidean distance between nodes u and v of inst.
func (e *CVRP) dist(inst, u, v int) float64 {
	var (
		data = e.coords.Data()
		uo   = (inst*e.nodes + u) * 2
		vo   = (inst*e.nodes + v) * 2
	)

	return euclid(data[uo], data[uo+1], data[vo], data[vo+1])
}
