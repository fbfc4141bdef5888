package ctxquery

import (
	"context"

	"github.com/loabridge/bridge/internal/pathlock"
)

// Facade is the Context Query Facade: a unified read-side search with a
// three-tier fallback and a token budget, rooted at a project's Paths.
type Facade struct {
	Paths    *pathlock.Paths
	Config   Config
	Semantic Retriever // tier 1, may be nil
	Hybrid   Retriever // tier 2, may be nil
}

// New returns a Facade with no external retrievers wired; Query falls
// straight through to the grep tier until Semantic/Hybrid are set.
func New(paths *pathlock.Paths, cfg Config) *Facade {
	return &Facade{Paths: paths, Config: cfg}
}

// Query resolves scope and tokenBudget against Config defaults, then
// tries the semantic tier, the hybrid tier, and finally the grep tier in
// order, returning the first tier that completes without error.
func (f *Facade) Query(ctx context.Context, query string, scope Scope, tokenBudget int) ([]Result, error) {
	if f.Config.Disabled {
		return nil, ErrFacilityDisabled
	}

	if scope == "" {
		scope = f.Config.DefaultScope
	}
	if scope == "" {
		scope = ScopeAll
	}
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	if tokenBudget <= 0 {
		tokenBudget = f.Config.DefaultTokenBudget
	}
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}

	if f.Semantic != nil {
		if results, err := f.Semantic.Query(ctx, query, scope, tokenBudget); err == nil {
			return fitBudget(results, tokenBudget), nil
		}
	}
	if f.Hybrid != nil {
		if results, err := f.Hybrid.Query(ctx, query, scope, tokenBudget); err == nil {
			return fitBudget(results, tokenBudget), nil
		}
	}

	keywords := extractKeywords(query)
	roots := rootsForScope(f.Paths, scope)
	results, err := grepQuery(f.Paths, roots, keywords)
	if err != nil {
		return nil, err
	}
	return fitBudget(results, tokenBudget), nil
}
