// Package decode: the mutable instance-batch state shared between the
// decoder and its environment.
//
// Ownership contract (enforced by interface segregation):
//   - The environment owns every field and mutates them in Step.
//   - The decoder reads through the StateView interface and writes
//     exactly one thing: the pending action, via SetAction.
package decode

import "github.com/katalvlaran/attnroute/tensor"

// StateView is the read-only surface the scoring path and the pluggable
// strategies see. Implementations must not be mutated through it; the
// decoder never does.
type StateView interface {
	// BatchSize returns the number of live trajectories (expanded batch).
	BatchSize() int

	// NumNodes returns the number of candidate nodes per instance.
	NumNodes() int

	// Legal reports whether node n is currently selectable for row b.
	Legal(b, n int) bool

	// Done reports whether row b has finished constructing its solution.
	Done(b int) bool

	// Action returns the pending (or last applied) action of row b.
	Action(b int) int

	// Int returns a named per-row integer field (e.g. "first", "current"),
	// or nil when absent. Callers must treat the slice as read-only.
	Int(name string) []int

	// Float returns a named environment tensor, or nil when absent.
	// Callers must treat it as read-only.
	Float(name string) *tensor.Dense
}

// State is the concrete instance-batch state. Environments construct it,
// populate their fields, and mutate it on every Step.
type State struct {
	batch  int
	nodes  int
	mask   []bool // batch·nodes, true = node currently legal
	done   []bool // batch
	action []int  // batch, pending action per row
	ints   map[string][]int
	floats map[string]*tensor.Dense
}

// NewState creates a state for batch rows over nodes candidates, with
// every node legal, nothing done and no pending actions (-1).
func NewState(batch, nodes int) (*State, error) {
	if batch <= 0 || nodes <= 0 {
		return nil, ErrShapeMismatch
	}

	var (
		mask   = make([]bool, batch*nodes)
		action = make([]int, batch)
		i      int
	)
	for i = range mask {
		mask[i] = true
	}
	for i = range action {
		action[i] = -1
	}

	return &State{
		batch:  batch,
		nodes:  nodes,
		mask:   mask,
		done:   make([]bool, batch),
		action: action,
		ints:   make(map[string][]int),
		floats: make(map[string]*tensor.Dense),
	}, nil
}

// BatchSize returns the number of live trajectories.
func (s *State) BatchSize() int { return s.batch }

// NumNodes returns the number of candidate nodes.
func (s *State) NumNodes() int { return s.nodes }

// Legal reports whether node n is selectable for row b. Out-of-range
// queries report false.
func (s *State) Legal(b, n int) bool {
	if b < 0 || b >= s.batch || n < 0 || n >= s.nodes {
		return false
	}

	return s.mask[b*s.nodes+n]
}

// SetLegal marks node n of row b as legal or forbidden. Environment use
// only. Out-of-range writes are ignored (programmer error in the env).
func (s *State) SetLegal(b, n int, legal bool) {
	if b < 0 || b >= s.batch || n < 0 || n >= s.nodes {
		return
	}
	s.mask[b*s.nodes+n] = legal
}

// Done reports the termination flag of row b.
func (s *State) Done(b int) bool {
	return b >= 0 && b < s.batch && s.done[b]
}

// SetDone sets the termination flag of row b. Environment use only.
func (s *State) SetDone(b int, done bool) {
	if b >= 0 && b < s.batch {
		s.done[b] = done
	}
}

// AllDone reports whether every trajectory has finished — the loop's
// sole exit condition.
func (s *State) AllDone() bool {
	var b int
	for b = 0; b < s.batch; b++ {
		if !s.done[b] {
			return false
		}
	}

	return true
}

// Action returns the pending action of row b (-1 before the first set).
func (s *State) Action(b int) int {
	if b < 0 || b >= s.batch {
		return -1
	}

	return s.action[b]
}

// SetAction stores one pending action per row — the decoder's only
// permitted mutation. Returns ErrBadAction on length mismatch or an
// out-of-range node index.
func (s *State) SetAction(actions []int) error {
	if len(actions) != s.batch {
		return ErrBadAction
	}
	var b int
	for b = range actions {
		if actions[b] < 0 || actions[b] >= s.nodes {
			return ErrBadAction
		}
	}
	copy(s.action, actions)

	return nil
}

// Int returns a named per-row integer field, or nil when absent.
func (s *State) Int(name string) []int { return s.ints[name] }

// SetInt installs a named per-row integer field. Environment use only;
// the slice is stored, not copied.
func (s *State) SetInt(name string, v []int) { s.ints[name] = v }

// Float returns a named environment tensor, or nil when absent.
func (s *State) Float(name string) *tensor.Dense { return s.floats[name] }

// SetFloat installs a named environment tensor. Environment use only.
func (s *State) SetFloat(name string, t *tensor.Dense) { s.floats[name] = t }

// Clone returns a deep copy (tests and speculative rollouts).
func (s *State) Clone() *State {
	cp := &State{
		batch:  s.batch,
		nodes:  s.nodes,
		mask:   append([]bool(nil), s.mask...),
		done:   append([]bool(nil), s.done...),
		action: append([]int(nil), s.action...),
		ints:   make(map[string][]int, len(s.ints)),
		floats: make(map[string]*tensor.Dense, len(s.floats)),
	}
	for k, v := range s.ints {
		cp.ints[k] = append([]int(nil), v...)
	}
	for k, v := range s.floats {
		cp.floats[k] = v.Clone()
	}

	return cp
}

// ExpandStarts replicates every row of the state numStarts times using
// the starts-major layout (new row s·B+b copies old row b). A factor
// <= 1 returns a deep copy. Named float fields are expanded through
// tensor.ExpandStarts, so their batch axis must be axis 0.
func (s *State) ExpandStarts(numStarts int) (*State, error) {
	if numStarts <= 1 {
		return s.Clone(), nil
	}

	var (
		newBatch = numStarts * s.batch
		out      = &State{
			batch:  newBatch,
			nodes:  s.nodes,
			mask:   make([]bool, newBatch*s.nodes),
			done:   make([]bool, newBatch),
			action: make([]int, newBatch),
			ints:   make(map[string][]int, len(s.ints)),
			floats: make(map[string]*tensor.Dense, len(s.floats)),
		}
		st, b, row int
	)
	for st = 0; st < numStarts; st++ {
		for b = 0; b < s.batch; b++ {
			row = st*s.batch + b
			copy(out.mask[row*s.nodes:(row+1)*s.nodes], s.mask[b*s.nodes:(b+1)*s.nodes])
			out.done[row] = s.done[b]
			out.action[row] = s.action[b]
		}
	}
	for name, v := range s.ints {
		nv := make([]int, newBatch)
		for st = 0; st < numStarts; st++ {
			copy(nv[st*s.batch:(st+1)*s.batch], v)
		}
		out.ints[name] = nv
	}
	for name, t := range s.floats {
		nt, err := tensor.ExpandStarts(t, numStarts)
		if err != nil {
			return nil, err
		}
		out.floats[name] = nt
	}

	return out, nil
}
