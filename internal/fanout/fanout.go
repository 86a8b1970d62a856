// Package fanout runs bounded-concurrency batches whose output order always
// matches input order regardless of completion order.
package fanout

import (
    "context"

    "golang.org/x/sync/errgroup"
)

// Map invokes fn for every item with at most limit calls in flight and returns
// the results indexed like the input. A limit <= 0 means no bound beyond
// len(items).
//
// An error from fn cancels the remaining work and fails the whole batch;
// callers wanting partial-failure tolerance catch per-item errors inside fn
// and return a sentinel result instead.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
    if len(items) == 0 {
        return nil, nil
    }
    if limit <= 0 || limit > len(items) {
        limit = len(items)
    }
    results := make([]R, len(items))
    g, ctx := errgroup.WithContext(ctx)
    g.SetLimit(limit)
    for i := range items {
        g.Go(func() error {
            r, err := fn(ctx, items[i])
            if err != nil {
                return err
            }
            results[i] = r
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }
    return results, nil
}
