package ctxquery

import "context"

// Retriever is the contract for an external tier: a semantic indexer
// (tier 1) or a hybrid lexical-vector store (tier 2). Both are genuinely
// external services with no in-core implementation; a facade is wired
// with zero, one, or two Retrievers and always falls back to the grep
// tier. A nil error means the tier is healthy and its (possibly empty)
// results are returned as-is; a non-nil error falls through to the next
// tier, ending with the always-available grep tier.
type Retriever interface {
	Query(ctx context.Context, query string, scope Scope, tokenBudget int) ([]Result, error)
}
