// Package decode: sentinel errors, decode modes and the result type.
// All public entry points return these sentinels and tests check them
// via errors.Is; no function panics on user input.
package decode

import (
	"errors"

	"github.com/katalvlaran/attnroute/tensor"
)

var (
	// ErrNilEnv indicates that a nil environment was passed to New.
	ErrNilEnv = errors.New("decode: environment is nil")

	// ErrNilState indicates a nil instance-batch state or nil embeddings.
	ErrNilState = errors.New("decode: nil state or embeddings")

	// ErrHeadDivisibility is the configuration error for an embedding
	// dimension not divisible by the number of attention heads.
	// Raised by New before any tensor work.
	ErrHeadDivisibility = errors.New("decode: embedding dim not divisible by num heads")

	// ErrMultistartConfig is the configuration error for a multi-start
	// decode type combined with NumStarts <= 1 (or a negative NumStarts).
	// Raised by Decode before any tensor work.
	ErrMultistartConfig = errors.New("decode: multistart decoding requires NumStarts > 1")

	// ErrUnknownDecodeType indicates a DecodeType outside the declared set.
	ErrUnknownDecodeType = errors.New("decode: unknown decode type")

	// ErrBadTemperature indicates a negative softmax temperature.
	ErrBadTemperature = errors.New("decode: temperature must be non-negative")

	// ErrShapeMismatch indicates disagreement between the embeddings,
	// the state, the cache and the mask — an integration bug between the
	// decoder and its collaborators, never silently coerced.
	ErrShapeMismatch = errors.New("decode: tensor shape mismatch")

	// ErrUnknownEnvironment indicates that no context builder or dynamic
	// embedder is registered under the environment's name and none was
	// supplied through model options.
	ErrUnknownEnvironment = errors.New("decode: unknown environment name")

	// ErrInfeasibleState indicates that the environment's action mask
	// forbids every node for a trajectory that is not done — an
	// environment invariant violation surfaced to the caller.
	ErrInfeasibleState = errors.New("decode: no feasible action for active trajectory")

	// ErrTooFewStartNodes indicates that an instance offers fewer
	// distinct legal starting nodes than the requested number of starts.
	ErrTooFewStartNodes = errors.New("decode: not enough distinct start nodes")

	// ErrBadAction indicates an action slice whose length does not match
	// the state's batch size, or an out-of-range node index.
	ErrBadAction = errors.New("decode: invalid action")
)

// DecodeType selects how actions are drawn from the per-step
// distribution.
type DecodeType int

const (
	// Sampling draws each action from the masked distribution.
	Sampling DecodeType = iota

	// Greedy takes the most probable legal action.
	Greedy

	// MultistartSampling samples within each of NumStarts parallel
	// rollouts per instance.
	MultistartSampling

	// MultistartGreedy decodes greedily within each of NumStarts
	// parallel rollouts per instance, each seeded with a distinct
	// starting node.
	MultistartGreedy
)

// Multistart reports whether the type requests parallel rollouts.
func (dt DecodeType) Multistart() bool {
	return dt == MultistartSampling || dt == MultistartGreedy
}

// greedy reports whether the underlying per-step rule is argmax.
func (dt DecodeType) greedy() bool {
	return dt == Greedy || dt == MultistartGreedy
}

// valid reports membership in the declared set.
func (dt DecodeType) valid() bool {
	return dt >= Sampling && dt <= MultistartGreedy
}

// String implements fmt.Stringer for diagnostics.
func (dt DecodeType) String() string {
	switch dt {
	case Sampling:
		return "sampling"
	case Greedy:
		return "greedy"
	case MultistartSampling:
		return "multistart-sampling"
	case MultistartGreedy:
		return "multistart-greedy"
	default:
		return "unknown"
	}
}

// Trajectory is the stacked outcome of one decode call.
//
// With B original instances and K effective starts (K=1 when no
// expansion), the working batch is B* = max(K,1)·B rows laid out
// starts-major.
type Trajectory struct {
	// LogProbs holds the full per-step log-distributions, shape (B*, T, N).
	LogProbs *tensor.Dense

	// Actions holds the chosen node per step, indexed [row][step].
	Actions [][]int

	// Reward holds the terminal reward per row (len B*); nil unless
	// requested via Options.CalcReward.
	Reward []float64

	// State is the final environment state after the last transition.
	State *State
}

// Steps returns the number of decoding steps recorded (including the
// multi-start seeding step when present).
func (tr *Trajectory) Steps() int {
	if len(tr.Actions) == 0 {
		return 0
	}

	return len(tr.Actions[0])
}
