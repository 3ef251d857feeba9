// Package decode: per-call decoding options.
//
// DEFAULTS — single source of truth for zero-value behavior. A zero
// Options value decodes by sampling, computes no reward, uses
// temperature 1 and the fixed default seed; DefaultOptions additionally
// turns the reward on, matching the common inference path.
package decode

// Default option values.
const (
	// DefaultSoftmaxTemp is the temperature applied when Options leaves
	// SoftmaxTemp at zero.
	DefaultSoftmaxTemp = 1.0

	// DefaultSeed is the fixed seed substituted when Options.Seed == 0,
	// keeping zero-value decodes reproducible across platforms.
	DefaultSeed int64 = 1
)

// Options configures a single Decode call.
//
// Fields:
//   - DecodeType  — action-selection mode (Sampling, Greedy, Multistart*).
//   - NumStarts   — multi-start expansion factor; 0 or 1 means a single
//     trajectory per instance. Any value > 1 expands the batch even for
//     non-multistart types (parallel sampled rollouts).
//   - SoftmaxTemp — softmax temperature; 0 selects DefaultSoftmaxTemp.
//   - Seed        — RNG seed for sampling; 0 selects DefaultSeed.
//   - CalcReward  — ask the environment for the terminal reward and
//     attach it to the trajectory.
type Options struct {
	DecodeType  DecodeType
	NumStarts   int
	SoftmaxTemp float64
	Seed        int64
	CalcReward  bool
}

// DefaultOptions returns the standard inference configuration:
// sampling, single start, unit temperature, reward computed.
func DefaultOptions() Options {
	return Options{
		DecodeType: Sampling,
		CalcReward: true,
	}
}

// validateOptions checks internal consistency of an Options value. It
// runs before ANY tensor computation so configuration errors fail fast.
//
// Errors: ErrUnknownDecodeType, ErrMultistartConfig, ErrBadTemperature.
func validateOptions(o Options) error {
	if !o.DecodeType.valid() {
		return ErrUnknownDecodeType
	}
	if o.NumStarts < 0 {
		return ErrMultistartConfig
	}
	if o.DecodeType.Multistart() && o.NumStarts <= 1 {
		return ErrMultistartConfig
	}
	if o.SoftmaxTemp < 0 {
		return ErrBadTemperature
	}

	return nil
}
