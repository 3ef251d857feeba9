// Package decode: the environment-strategy registry.
//
// Each environment family needs two capabilities the core cannot know
// about: how to build the step-context query from the partial solution,
// and how (if at all) the partial solution perturbs the cached keys.
// They are registered once under the environment's name and resolved a
// single time at decoder construction — no runtime type inspection
// anywhere else.
package decode

import "github.com/katalvlaran/attnroute/tensor"

// ContextBuilder produces the "where we are now" query for the current
// state.
//
// Contract: given the ORIGINAL node embeddings (B, N, D) and a state
// view over the working batch B* (expanded, starts-major), Build
// returns a (B*, D) query. Implementations map a working row to its
// instance with tensor.StartsInstance.
type ContextBuilder interface {
	Build(nodes *tensor.Dense, td StateView) (*tensor.Dense, error)
}

// DynamicEmbedder produces step-varying additive corrections to the
// cached glimpse key, glimpse value and logit key.
//
// Contract: each returned tensor is (B*, N, D) over the working batch,
// or nil to signal an exact zero correction (the decoder then skips the
// addition entirely). Environments with purely static node features
// should use StaticEmbedding.
type DynamicEmbedder interface {
	Corrections(td StateView) (glimpseK, glimpseV, logitK *tensor.Dense, err error)
}

// StaticEmbedding is the DynamicEmbedder for environments whose node
// features never change during construction: all corrections are nil.
type StaticEmbedding struct{}

// Corrections implements DynamicEmbedder with zero cost.
func (StaticEmbedding) Corrections(StateView) (*tensor.Dense, *tensor.Dense, *tensor.Dense, error) {
	return nil, nil, nil, nil
}

// ContextFactory builds an environment's ContextBuilder for a given
// embedding width; seed drives deterministic parameter initialization.
type ContextFactory func(embedDim int, seed int64) (ContextBuilder, error)

// DynamicFactory builds an environment's DynamicEmbedder.
type DynamicFactory func(embedDim int, seed int64) (DynamicEmbedder, error)

var (
	contextRegistry = make(map[string]ContextFactory)
	dynamicRegistry = make(map[string]DynamicFactory)
)

// RegisterContextBuilder installs a context factory under an
// environment name, replacing any previous entry. Registration is meant
// for package init time and is not synchronized. Empty names and nil
// factories are programmer errors and panic.
func RegisterContextBuilder(name string, f ContextFactory) {
	if name == "" || f == nil {
		panic("decode: invalid context builder registration")
	}
	contextRegistry[name] = f
}

// RegisterDynamicEmbedder installs a dynamic-embedder factory under an
// environment name. Same rules as RegisterContextBuilder.
func RegisterDynamicEmbedder(name string, f DynamicFactory) {
	if name == "" || f == nil {
		panic("decode: invalid dynamic embedder registration")
	}
	dynamicRegistry[name] = f
}

// lookupContext resolves a registered context factory.
func lookupContext(name string) (ContextFactory, error) {
	f, ok := contextRegistry[name]
	if !ok {
		return nil, ErrUnknownEnvironment
	}

	return f, nil
}

// lookupDynamic resolves a registered dynamic factory; environments
// without a registration default to StaticEmbedding rather than failing,
// since "no dynamic features" is the common case.
func lookupDynamic(name string) DynamicFactory {
	if f, ok := dynamicRegistry[name]; ok {
		return f
	}

	return func(int, int64) (DynamicEmbedder, error) { return StaticEmbedding{}, nil }
}
