package search

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// UnionRequest pairs a Query with the Backend it runs against, for one leg
// of a union search (§4.6.2).
type UnionRequest struct {
	Name    string
	Query   Query
	Backend Backend
}

// UnionResult is one leg's outcome: either a Result or the error that leg
// produced, isolated from the other legs.
type UnionResult struct {
	Name   string
	Result *Result
	Err    error
}

// Union runs every request's search independently and concurrently,
// isolating failures per §4.6.2: one collection's error (missing field,
// invalid filter, deadline) never aborts the others' results.
func Union(ctx context.Context, requests []UnionRequest) []UnionResult {
	out := make([]UnionResult, len(requests))
	var g errgroup.Group
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			res, err := Search(ctx, req.Query, req.Backend)
			out[i] = UnionResult{Name: req.Name, Result: res, Err: err}
			return nil // per-leg errors are carried in out, never propagated
		})
	}
	_ = g.Wait()
	return out
}
