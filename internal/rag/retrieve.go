package rag

import "context"

// RetrieveFunc is the retrieval shape consumed by evaluation and scoring
// harnesses: a free-text query and a k, ranked results out.
type RetrieveFunc func(ctx context.Context, query string, k int) ([]Result, error)

// NewRetrieveFunc adapts a System into a RetrieveFunc. It is a thin
// adapter with Query's exact semantics, including the DefaultTopK
// fallback for k <= 0.
func NewRetrieveFunc(s *System) RetrieveFunc {
	return func(ctx context.Context, query string, k int) ([]Result, error) {
		return s.Query(ctx, query, k)
	}
}
