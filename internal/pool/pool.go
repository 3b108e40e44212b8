package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"albumscan/pkg/logger"
)

// ProcessFunc handles one job input
type ProcessFunc[T, R any] func(ctx context.Context, input T) (R, error)

// Job is a unit of work tagged with its position in the input
type Job[T any] struct {
	Index int
	Input T
}

// Result is the outcome of one job
type Result[R any] struct {
	Index    int
	Value    R
	Err      error
	Duration time.Duration
}

// WorkerPool runs jobs on a fixed number of workers. Results arrive in
// completion order; Map reassembles them by index.
type WorkerPool[T, R any] struct {
	numWorkers  int
	jobQueue    chan Job[T]
	resultQueue chan Result[R]
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	process     ProcessFunc[T, R]
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx
func NewWorkerPool[T, R any](ctx context.Context, numWorkers int, process ProcessFunc[T, R], log logger.Logger) *WorkerPool[T, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool[T, R]{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job[T], numWorkers*2),
		resultQueue: make(chan Result[R], numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		process:     process,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool[T, R]) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for the workers and closes Results
func (wp *WorkerPool[T, R]) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job
func (wp *WorkerPool[T, R]) Submit(job Job[T]) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel
func (wp *WorkerPool[T, R]) Results() <-chan Result[R] {
	return wp.resultQueue
}

func (wp *WorkerPool[T, R]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		start := time.Now()
		value, err := wp.process(wp.ctx, job.Input)
		result := Result[R]{Index: job.Index, Value: value, Err: err, Duration: time.Since(start)}
		if err != nil {
			wp.logger.WithError(err).DebugWithFields("Job failed", map[string]interface{}{
				"worker_id": id,
				"index":     job.Index,
			})
		}

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// Map runs fn over inputs on up to workers goroutines and returns the
// outputs in input order. The first failing index wins and cancels the rest.
func Map[T, R any](ctx context.Context, workers int, inputs []T, fn ProcessFunc[T, R], log logger.Logger) ([]R, error) {
	out := make([]R, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	wp := NewWorkerPool(ctx, workers, fn, log)
	wp.Start()

	go func() {
		defer wp.Stop()
		for i, in := range inputs {
			if err := wp.Submit(Job[T]{Index: i, Input: in}); err != nil {
				return
			}
		}
	}()

	var firstErr error
	firstIdx := -1
	done := 0
	for res := range wp.Results() {
		done++
		if res.Err != nil {
			if firstIdx < 0 || res.Index < firstIdx {
				firstIdx, firstErr = res.Index, res.Err
			}
			wp.cancel()
			continue
		}
		out[res.Index] = res.Value
	}

	if firstErr != nil {
		return nil, fmt.Errorf("item %d: %w", firstIdx+1, firstErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if done != len(inputs) {
		return nil, fmt.Errorf("worker pool stopped after %d of %d items", done, len(inputs))
	}
	return out, nil
}
