package router

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lexgate/lexgate/pkg/models"
)

// ProcessBatch routes a batch of requests, preserving input order in
// the returned slice. High-priority requests are dispatched
// concurrently and complete before any medium/low request is issued;
// medium and low then run together. Within a group there is no
// ordering guarantee. Individual failures become failure Responses in
// place — nothing aborts the batch.
func (r *Router) ProcessBatch(ctx context.Context, reqs []*models.Request) []*models.Response {
	out := make([]*models.Response, len(reqs))
	if len(reqs) == 0 {
		return out
	}

	r.reconcile()

	var high, rest []int
	for i, req := range reqs {
		if req.Priority == models.PriorityHigh {
			high = append(high, i)
		} else {
			rest = append(rest, i)
		}
	}

	dispatch := func(indices []int) {
		g := new(errgroup.Group)
		for _, i := range indices {
			i := i
			g.Go(func() error {
				// Process never returns an error.
				out[i] = r.Process(ctx, reqs[i])
				return nil
			})
		}
		g.Wait()
	}

	dispatch(high)
	dispatch(rest)
	return out
}
