package routing

import "github.com/katalvlaran/attnroute/decode"

// The shipped environments self-register their strategies so that
// decode.New can resolve them by environment name alone.
func init() {
	decode.RegisterContextBuilder(EnvNameTSP, func(embedDim int, seed int64) (decode.ContextBuilder, error) {
		return NewTSPContext(embedDim, seed)
	})
	decode.RegisterContextBuilder(EnvNameCVRP, func(embedDim int, seed int64) (decode.ContextBuilder, error) {
		return NewCVRPContext(embedDim, seed)
	})
	decode.RegisterDynamicEmbedder(EnvNameCVRP, func(embedDim int, seed int64) (decode.DynamicEmbedder, error) {
		return NewCapacityDynamic(embedDim, seed)
	})
}
