// Package decode implements the autoregressive decoding core of an
// attention-based construction heuristic for combinatorial problems.
//
// Given precomputed node embeddings for a batch of instances, the
// decoder incrementally builds feasible solutions: each step it builds
// a context query from the partial solution, scores every candidate
// node through a glimpse/logit attention unit against keys projected
// ONCE per decode call, masks infeasible choices with the environment's
// action mask, selects one action per trajectory, and asks the
// environment to transition. Multi-start mode replicates every instance
// into several parallel greedy rollouts, each seeded with a distinct
// starting node, laid out starts-major (see the tensor package).
//
// The package owns the loop and its tensor bookkeeping only. Feasibility
// masking, state transitions and rewards belong to the Env collaborator;
// per-environment context construction and dynamic key corrections are
// pluggable strategies resolved by name through the registry; node
// scoring is pluggable through the Scorer interface (default:
// attn.LogitAttention); action selection and start seeding are
// replaceable policies.
//
// Lifecycle of one Decode call:
//
//	validate → precompute cache → [seed multi-starts] →
//	repeat { score → select → env.Step } until all done →
//	stack trace → [env.Reward]
//
// Everything is synchronous and single-threaded: parallelism is the
// batch axis of bulk operations, not control flow. The cache is
// immutable after precompute; the instance-batch state is the only
// mutable shared value and the decoder writes nothing into it but the
// pending action.
package decode
