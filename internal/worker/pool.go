// Package worker provides the bounded-concurrency helpers used by corpus
// ingest. Generation itself runs a single logical worker per request; only
// ingest fans out.
package worker

import (
	"context"
	"sync"
)

// Result pairs one input's output with its position and error
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Map runs fn over every input with at most workers goroutines and returns
// results in input order. It stops scheduling new work once ctx is cancelled;
// cancellation surfaces as ctx.Err() on the unprocessed entries.
func Map[In, Out any](ctx context.Context, workers int, inputs []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]Result[Out], len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				value, err := fn(ctx, inputs[i])
				results[i] = Result[Out]{Index: i, Value: value, Err: err}
			}
		}()
	}

	for i := range inputs {
		select {
		case <-ctx.Done():
			results[i] = Result[Out]{Index: i, Err: ctx.Err()}
			continue
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
