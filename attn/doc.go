// Package attn implements the scoring unit of the attention decoder: a
// multi-head "glimpse" attention over candidate nodes followed by a
// single-head, tanh-clipped logit scoring pass and a masked log-softmax.
//
// The unit is stateless across decoding steps — it holds only its
// output projection weights — and is consumed by the decode package
// through a narrow interface, so alternative scorers can be swapped in
// without touching the loop.
//
// Numeric policy:
//   - Masked positions are excluded additively (score = −Inf), never by
//     renormalizing afterwards.
//   - Softmax uses the max-subtraction form for stability.
//   - A row with every position forbidden is an input contract violation
//     and surfaces as ErrAllMasked; the unit never guesses a fallback.
package attn
