package pipeline

import (
	"context"
	"sync"
)

// forEachOrdered runs fn for indices [0, n) with at most limit goroutines in
// flight. Results are collected in input order regardless of completion
// order. The first error wins and cancels the remaining work.
func forEachOrdered[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if limit < 1 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]T, n)
	sem := make(chan struct{}, limit)
	errCh := make(chan error, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			goto wait
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := fn(ctx, i)
			if err != nil {
				errCh <- err
				cancel()
				return
			}
			results[i] = res
		}(i)
	}

wait:
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
