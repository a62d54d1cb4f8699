package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of one item's work.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// Settle runs fn for every item concurrently, at most limit at a time
// (limit <= 0 means unbounded), and waits for all of them. A failing or
// panicking item never cancels its siblings; its error is kept in its
// Outcome instead. Outcomes are returned in input order.
func Settle[I, T any](ctx context.Context, items []I, limit int, fn func(ctx context.Context, item I) (T, error)) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = run(ctx, i, item, fn)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func run[I, T any](ctx context.Context, i int, item I, fn func(ctx context.Context, item I) (T, error)) (out Outcome[T]) {
	out.Index = i
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("item %d panicked: %v", i, r)
		}
	}()
	out.Value, out.Err = fn(ctx, item)
	return out
}
