// Package attnroute is an autoregressive attention decoder for
// constructing combinatorial solutions — routing tours and vehicle
// plans built one node at a time from learned embeddings.
//
// 🚀 What is attnroute?
//
//	A deterministic, batch-first decoding core that brings together:
//		• Precomputed attention caches: project node embeddings once, score every step
//		• Pointer-style scoring: multi-head glimpse + masked single-head logits
//		• Decode strategies: greedy, sampling, and multi-start parallel rollouts
//		• Environments: TSP and capacity-constrained CVRP, pluggable via a registry
//		• Dense tensors: a small row-major kernel with starts-major batch folding
//
// ✨ Why choose attnroute?
//
//   - Reproducible by construction – fixed seeds everywhere, no time-based randomness
//   - Rock-solid guarantees – sentinel errors, strict shape checks, in-code contracts
//   - Pure Go – no cgo, no bindings, portable across platforms
//   - Extensible – register context builders & dynamic embeddings for new environments
//
// Under the hood, everything is organized under four subpackages:
//
//	tensor/  — dense row-major tensors, linear maps & starts-major layout helpers
//	attn/    — the masked multi-head scoring unit (glimpse → logits → log-softmax)
//	decode/  — the decoder: precompute, step loop, policies, state & registry
//	routing/ — TSP and CVRP environments with their embedding strategies
//
// Quick start:
//
//	env, _ := routing.NewTSP(coords)   // (B, N, 2) planar instances
//	dec, _ := decode.New(env, 128, 8)  // embed width 128, 8 heads
//	td, _ := env.Reset()
//	tr, err := dec.Decode(td, embeddings, decode.Options{
//		DecodeType: decode.MultistartGreedy,
//		NumStarts:  8,
//		CalcReward: true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = tr.Reward // negative tour length per rollout
//
// Start with decode.New, bring your own embeddings, and let the mask
// drive the search.
//
//	go get github.com/katalvlaran/attnroute
package attnroute
