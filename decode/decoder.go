// Package decode: the Decoder and its step loop.
//
// This file is the state machine of the module:
//
//	INIT            — validate configuration, build the precomputed cache.
//	MULTISTART_SEED — (only when expansion is requested) pick one distinct
//	                  starting node per rollout, expand the state
//	                  starts-major, apply the seeds through the
//	                  environment and record them with log-probability 0.
//	STEPPING        — while any trajectory is unfinished: score, select,
//	                  transition the WHOLE expanded batch synchronously.
//	DONE            — stack the trace, optionally attach the reward.
package decode

import (
	"math"
	"math/rand"

	"github.com/katalvlaran/attnroute/attn"
	"github.com/katalvlaran/attnroute/tensor"
)

// Env is the external environment collaborator. It owns the state: the
// decoder writes nothing into it but the pending action.
type Env interface {
	// Name identifies the environment family; it selects the registered
	// context builder and dynamic embedder.
	Name() string

	// Step applies each row's pending action and advances the state:
	// action mask, done flags and env-specific fields. Must be pure with
	// respect to everything outside the state, and must keep at least
	// one legal action for rows already done (a "stay" action that Step
	// treats as a no-op).
	Step(td *State) error

	// Reward computes the terminal reward from the final state and the
	// full per-step action sequence, one value per working row.
	Reward(td *State, actions [][]int) ([]float64, error)
}

// Scorer turns a step query, the (combined) keys/values and a forbidden
// mask into masked log-probabilities over nodes; see attn.LogitAttention
// for the default implementation and the exact shape contract.
type Scorer interface {
	Score(q, glimpseK, glimpseV, logitK *tensor.Dense, mask []bool, temp float64) (*tensor.Dense, error)
}

// Decoder is the autoregressive decoding core. Construct with New; one
// value serves any number of sequential Decode calls.
type Decoder struct {
	env      Env
	embedDim int
	numHeads int

	projNodes   *tensor.Linear // D → 3D fused node projection, bias-free
	projContext *tensor.Linear // D → D graph-context projection, bias-free

	scorer    Scorer
	context   ContextBuilder
	dynamic   DynamicEmbedder
	selection SelectionPolicy
	seeding   StartPolicy
}

// modelConfig collects construction overrides.
type modelConfig struct {
	seed      int64
	scorer    Scorer
	context   ContextBuilder
	dynamic   DynamicEmbedder
	selection SelectionPolicy
	seeding   StartPolicy
}

// ModelOption customizes decoder construction.
type ModelOption func(*modelConfig)

// WithInitSeed sets the parameter-initialization seed (0 = fixed default).
func WithInitSeed(seed int64) ModelOption { return func(c *modelConfig) { c.seed = seed } }

// WithScorer replaces the default attn.LogitAttention scoring unit.
func WithScorer(s Scorer) ModelOption { return func(c *modelConfig) { c.scorer = s } }

// WithContextBuilder bypasses the registry for the step-context strategy.
func WithContextBuilder(b ContextBuilder) ModelOption {
	return func(c *modelConfig) { c.context = b }
}

// WithDynamicEmbedder bypasses the registry for the dynamic-embedding strategy.
func WithDynamicEmbedder(d DynamicEmbedder) ModelOption {
	return func(c *modelConfig) { c.dynamic = d }
}

// WithSelectionPolicy replaces DecodeProbs.
func WithSelectionPolicy(p SelectionPolicy) ModelOption {
	return func(c *modelConfig) { c.selection = p }
}

// WithStartPolicy replaces SelectStartNodes.
func WithStartPolicy(p StartPolicy) ModelOption {
	return func(c *modelConfig) { c.seeding = p }
}

// New builds a decoder for env with the given embedding width and head
// count.
//
// Stage 1 (Validate): env non-nil, dimensions positive, embedDim
// divisible by numHeads — all before any allocation.
// Stage 2 (Prepare): build the two fixed projections and the default
// scorer, each on an independent deterministic seed stream.
// Stage 3 (Resolve): look up the environment's context builder and
// dynamic embedder unless overridden by options.
//
// Errors: ErrNilEnv, ErrHeadDivisibility, ErrShapeMismatch,
// ErrUnknownEnvironment.
func New(env Env, embedDim, numHeads int, opts ...ModelOption) (*Decoder, error) {
	if env == nil {
		return nil, ErrNilEnv
	}
	if embedDim <= 0 || numHeads <= 0 {
		return nil, ErrShapeMismatch
	}
	if embedDim%numHeads != 0 {
		return nil, ErrHeadDivisibility
	}

	var cfg modelConfig
	for _, o := range opts {
		o(&cfg)
	}

	projNodes, err := tensor.NewLinear(embedDim, 3*embedDim, deriveSeed(cfg.seed, 1))
	if err != nil {
		return nil, err
	}
	projContext, err := tensor.NewLinear(embedDim, embedDim, deriveSeed(cfg.seed, 2))
	if err != nil {
		return nil, err
	}

	scorer := cfg.scorer
	if scorer == nil {
		scorer, err = attn.NewLogitAttention(
			attn.DefaultConfig(embedDim, numHeads),
			deriveSeed(cfg.seed, 3),
		)
		if err != nil {
			return nil, err
		}
	}

	context := cfg.context
	if context == nil {
		factory, lerr := lookupContext(env.Name())
		if lerr != nil {
			return nil, lerr
		}
		context, err = factory(embedDim, deriveSeed(cfg.seed, 4))
		if err != nil {
			return nil, err
		}
	}

	dynamic := cfg.dynamic
	if dynamic == nil {
		dynamic, err = lookupDynamic(env.Name())(embedDim, deriveSeed(cfg.seed, 5))
		if err != nil {
			return nil, err
		}
	}

	selection := cfg.selection
	if selection == nil {
		selection = DecodeProbs
	}
	seeding := cfg.seeding
	if seeding == nil {
		seeding = SelectStartNodes
	}

	return &Decoder{
		env:         env,
		embedDim:    embedDim,
		numHeads:    numHeads,
		projNodes:   projNodes,
		projContext: projContext,
		scorer:      scorer,
		context:     context,
		dynamic:     dynamic,
		selection:   selection,
		seeding:     seeding,
	}, nil
}

// NodeProjection exposes the fused node projection for weight loading.
func (d *Decoder) NodeProjection() *tensor.Linear { return d.projNodes }

// ContextProjection exposes the graph-context projection for weight loading.
func (d *Decoder) ContextProjection() *tensor.Linear { return d.projContext }

// Decode constructs one complete solution per trajectory.
//
// td is the environment's initial state over B instances; embeddings is
// the (B, N, D) node-embedding tensor produced upstream, treated as
// immutable for the whole call. With Options.NumStarts = K > 1 the
// batch expands to K·B rows laid out starts-major.
//
// The trajectory records one (log-distribution, action) pair per loop
// iteration, the seeding step included; the loop exits only when every
// row reports done, or on the first error.
func (d *Decoder) Decode(td *State, embeddings *tensor.Dense, opts Options) (*Trajectory, error) {
	// INIT — configuration first, before any tensor computation.
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if td == nil || embeddings == nil {
		return nil, ErrNilState
	}
	if embeddings.Dim(0) != td.BatchSize() || embeddings.Dim(1) != td.NumNodes() {
		return nil, ErrShapeMismatch
	}

	numStarts := opts.NumStarts
	cache, err := d.Precompute(embeddings, numStarts)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	rng := rand.New(rand.NewSource(seed))

	var (
		logps   []*tensor.Dense // per step, (B*, N)
		actions [][]int         // per step, len B*
	)

	// MULTISTART_SEED — the first action is chosen by the seeding
	// policy, not by attention; its log-probability is zero (certainty).
	if numStarts > 1 || opts.DecodeType.Multistart() {
		seeds, serr := d.seeding(td, numStarts)
		if serr != nil {
			return nil, serr
		}
		if td, err = td.ExpandStarts(numStarts); err != nil {
			return nil, err
		}
		if err = td.SetAction(seeds); err != nil {
			return nil, err
		}
		if err = d.env.Step(td); err != nil {
			return nil, err
		}

		zero, zerr := tensor.NewDense(td.BatchSize(), td.NumNodes())
		if zerr != nil {
			return nil, zerr
		}
		logps = append(logps, zero)
		actions = append(actions, seeds)
	}

	// STEPPING — one synchronous transition of the whole batch per
	// iteration; step k's mask is computed strictly after step k-1's
	// transition.
	for !td.AllDone() {
		logp, mask, serr := d.StepLogProbs(cache, td, opts.SoftmaxTemp, numStarts)
		if serr != nil {
			return nil, serr
		}

		probs := expTensor(logp)
		chosen, perr := d.selection(probs, mask, opts.DecodeType, rng)
		if perr != nil {
			return nil, perr
		}

		if err = td.SetAction(chosen); err != nil {
			return nil, err
		}
		if err = d.env.Step(td); err != nil {
			return nil, err
		}

		logps = append(logps, logp)
		actions = append(actions, chosen)
	}

	// DONE — stack the trace step-major → (B*, T, N) / [B*][T].
	stacked, err := tensor.Stack(logps)
	if err != nil {
		return nil, err
	}

	var (
		batch = td.BatchSize()
		steps = len(actions)
		byRow = make([][]int, batch)
		b, t  int
	)
	for b = 0; b < batch; b++ {
		byRow[b] = make([]int, steps)
		for t = 0; t < steps; t++ {
			byRow[b][t] = actions[t][b]
		}
	}

	out := &Trajectory{LogProbs: stacked, Actions: byRow, State: td}
	if opts.CalcReward {
		out.Reward, err = d.env.Reward(td, byRow)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// StepLogProbs is the per-step scoring orchestration: build the
// glimpse query from the step context and the cached graph context,
// combine the cached keys with any dynamic corrections, negate the
// environment's action mask, and run the scorer — folding the starts
// axis back into the batch with the same starts-major layout the
// seeding expansion used.
//
// Returns the flat (B*, N) log-probabilities and the flat forbidden
// mask (true = forbidden), with no side effects beyond reads.
func (d *Decoder) StepLogProbs(
	cache *PrecomputedCache,
	td *State,
	temp float64,
	numStarts int,
) (*tensor.Dense, []bool, error) {
	var (
		batch = td.BatchSize()
		nodes = td.NumNodes()
	)

	// Forbidden mask = logical negation of the environment's action
	// mask. Active rows with nothing legal are an environment invariant
	// violation and surface immediately.
	var (
		forbidden = make([]bool, batch*nodes)
		b, n      int
		anyLegal  bool
	)
	for b = 0; b < batch; b++ {
		anyLegal = false
		for n = 0; n < nodes; n++ {
			if td.Legal(b, n) {
				anyLegal = true
			} else {
				forbidden[b*nodes+n] = true
			}
		}
		if !anyLegal && !td.Done(b) {
			return nil, nil, ErrInfeasibleState
		}
	}

	// Step context query over the working batch, (B*, D).
	stepCtx, err := d.context.Build(cache.NodeEmbeddings(), td)
	if err != nil {
		return nil, nil, err
	}
	if stepCtx == nil || stepCtx.Rank() != 2 ||
		stepCtx.Dim(0) != batch || stepCtx.Dim(1) != d.embedDim {
		return nil, nil, ErrShapeMismatch
	}

	// Dynamic corrections; nil means exact zero.
	dynK, dynV, dynL, err := d.dynamic.Corrections(td)
	if err != nil {
		return nil, nil, err
	}

	perRollout := numStarts > 1 && (dynK != nil || dynV != nil || dynL != nil)
	if perRollout {
		return d.scorePerRollout(cache, stepCtx, dynK, dynV, dynL, forbidden, temp, numStarts, batch, nodes)
	}

	return d.scoreShared(cache, stepCtx, dynK, dynV, dynL, forbidden, temp, numStarts, batch, nodes)
}

// scoreShared is the fast path: every rollout of an instance shares the
// cached (plus instance-level corrections) keys, so the scorer sees one
// batch entry with numStarts queries.
func (d *Decoder) scoreShared(
	cache *PrecomputedCache,
	stepCtx, dynK, dynV, dynL *tensor.Dense,
	forbidden []bool,
	temp float64,
	numStarts, batch, nodes int,
) (*tensor.Dense, []bool, error) {
	gk, gv, lk, err := combineKeys(cache.GlimpseKey(), cache.GlimpseVal(), cache.LogitKey(), dynK, dynV, dynL)
	if err != nil {
		return nil, nil, err
	}

	var q *tensor.Dense
	if numStarts > 1 {
		// (B*, D) → (B, K, D), then add the per-rollout graph context.
		sep, cerr := tensor.CollapseStarts(stepCtx, numStarts)
		if cerr != nil {
			return nil, nil, cerr
		}
		if q, err = tensor.Add(sep, cache.GraphContext()); err != nil {
			return nil, nil, err
		}
	} else {
		sum, aerr := tensor.Add(stepCtx, cache.GraphContext())
		if aerr != nil {
			return nil, nil, aerr
		}
		if q, err = sum.Reshape(batch, 1, d.embedDim); err != nil {
			return nil, nil, err
		}
	}

	maskSep, err := collapseMask(forbidden, numStarts, batch, nodes)
	if err != nil {
		return nil, nil, err
	}

	logp, err := d.scorer.Score(q, gk, gv, lk, maskSep, temp)
	if err != nil {
		return nil, nil, err
	}

	// Fold the starts axis back into the batch; the ordering must match
	// the seeding expansion or selections would cross rollouts.
	if numStarts > 1 {
		if logp, err = tensor.FlattenStarts(logp); err != nil {
			return nil, nil, err
		}
	} else {
		if logp, err = logp.Reshape(batch, nodes); err != nil {
			return nil, nil, err
		}
	}

	return logp, forbidden, nil
}

// scorePerRollout handles rollout-varying corrections: the cached keys
// are expanded starts-major once for this step and each working row is
// scored as its own batch entry with a single query.
func (d *Decoder) scorePerRollout(
	cache *PrecomputedCache,
	stepCtx, dynK, dynV, dynL *tensor.Dense,
	forbidden []bool,
	temp float64,
	numStarts, batch, nodes int,
) (*tensor.Dense, []bool, error) {
	expK, err := tensor.ExpandStarts(cache.GlimpseKey(), numStarts)
	if err != nil {
		return nil, nil, err
	}
	expV, err := tensor.ExpandStarts(cache.GlimpseVal(), numStarts)
	if err != nil {
		return nil, nil, err
	}
	expL, err := tensor.ExpandStarts(cache.LogitKey(), numStarts)
	if err != nil {
		return nil, nil, err
	}
	gk, gv, lk, err := combineKeys(expK, expV, expL, dynK, dynV, dynL)
	if err != nil {
		return nil, nil, err
	}

	// Per-rollout graph context, flattened to the working layout.
	ctx, err := tensor.FlattenStarts(cache.GraphContext())
	if err != nil {
		return nil, nil, err
	}
	sum, err := tensor.Add(stepCtx, ctx)
	if err != nil {
		return nil, nil, err
	}
	q, err := sum.Reshape(batch, 1, d.embedDim)
	if err != nil {
		return nil, nil, err
	}

	logp, err := d.scorer.Score(q, gk, gv, lk, forbidden, temp)
	if err != nil {
		return nil, nil, err
	}
	if logp, err = logp.Reshape(batch, nodes); err != nil {
		return nil, nil, err
	}

	return logp, forbidden, nil
}

// combineKeys adds optional dynamic corrections to the fixed tensors,
// always producing fresh tensors so the cache stays untouched.
func combineKeys(gk, gv, lk, dynK, dynV, dynL *tensor.Dense) (*tensor.Dense, *tensor.Dense, *tensor.Dense, error) {
	var err error
	if dynK != nil {
		if gk, err = tensor.Add(gk, dynK); err != nil {
			return nil, nil, nil, err
		}
	}
	if dynV != nil {
		if gv, err = tensor.Add(gv, dynV); err != nil {
			return nil, nil, nil, err
		}
	}
	if dynL != nil {
		if lk, err = tensor.Add(lk, dynL); err != nil {
			return nil, nil, nil, err
		}
	}

	return gk, gv, lk, nil
}

// collapseMask rearranges the flat forbidden mask (row s·B+b) into the
// scorer's (b, s, n) order — the boolean twin of tensor.CollapseStarts.
func collapseMask(forbidden []bool, numStarts, batch, nodes int) ([]bool, error) {
	if numStarts <= 1 {
		return forbidden, nil
	}
	if batch%numStarts != 0 {
		return nil, ErrShapeMismatch
	}

	var (
		orig = batch / numStarts
		out  = make([]bool, len(forbidden))
		b, s int
		src  int
		dst  int
	)
	for b = 0; b < orig; b++ {
		for s = 0; s < numStarts; s++ {
			src = (s*orig + b) * nodes
			dst = (b*numStarts + s) * nodes
			copy(out[dst:dst+nodes], forbidden[src:src+nodes])
		}
	}

	return out, nil
}

// expTensor exponentiates log-probabilities into a fresh tensor; -Inf
// maps to exactly zero mass.
func expTensor(logp *tensor.Dense) *tensor.Dense {
	out := logp.Clone()
	data := out.Data()
	var i int
	for i = range data {
		data[i] = math.Exp(data[i])
	}

	return out
}

// deriveSeed mixes a parent seed and a stream identifier into a new
// 64-bit seed (SplitMix64 finalizer), giving each parameter group an
// independent deterministic stream. seed==0 maps to the fixed default
// first, so zero-value construction stays reproducible.
func deriveSeed(parent int64, stream uint64) int64 {
	if parent == 0 {
		parent = DefaultSeed
	}
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}
