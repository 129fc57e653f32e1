package store

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Ref is one reference to resolve: an id in a collection, and what to use
// when the document does not exist.
type Ref[T any] struct {
	From        Getter[T]
	ID          string
	Placeholder T
}

func (r Ref[T]) resolve(ctx context.Context) (T, error) {
	if r.ID == "" {
		return r.Placeholder, nil
	}
	doc, err := r.From.Get(ctx, r.ID)
	if errors.Is(err, ErrNotFound) {
		return r.Placeholder, nil
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return *doc, nil
}

// Resolve fetches both references concurrently. A missing document resolves
// to its placeholder; any other failure fails the whole join.
func Resolve[A, B any](ctx context.Context, a Ref[A], b Ref[B]) (A, B, error) {
	var (
		left  A
		right B
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := a.resolve(gctx)
		left = v
		return err
	})
	g.Go(func() error {
		v, err := b.resolve(gctx)
		right = v
		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zeroA A
			zeroB B
		)
		return zeroA, zeroB, err
	}
	return left, right, nil
}
