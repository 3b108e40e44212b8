package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	var calls int32
	wp := NewWorkerPool(context.Background(), 3, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(5 * time.Millisecond)
		return n * n, nil
	}, nil)
	wp.Start()

	var results []Result[int]
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range wp.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		if err := wp.Submit(Job[int]{Index: i, Input: i}); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	wp.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for job %d: %v", r.Index, r.Err)
		}
		if r.Value != r.Index*r.Index {
			t.Errorf("Job %d: expected %d, got %d", r.Index, r.Index*r.Index, r.Value)
		}
	}
	if int(atomic.LoadInt32(&calls)) != numJobs {
		t.Errorf("Expected %d calls, got %d", numJobs, calls)
	}
}

func TestMapPreservesOrder(t *testing.T) {
	inputs := []int{50, 10, 40, 0, 30, 20}
	out, err := Map(context.Background(), 4, inputs, func(ctx context.Context, ms int) (string, error) {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return fmt.Sprintf("page-%d", ms), nil
	}, nil)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	for i, ms := range inputs {
		if want := fmt.Sprintf("page-%d", ms); out[i] != want {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want)
		}
	}
}

func TestMapConcurrency(t *testing.T) {
	inputs := make([]int, 10)
	start := time.Now()
	_, err := Map(context.Background(), 5, inputs, func(ctx context.Context, _ int) (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 0, nil
	}, nil)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	// 5 workers, 10 jobs of 100ms each: about 200ms
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Map took too long: %v", elapsed)
	}
}

func TestMapReportsFirstFailure(t *testing.T) {
	boom := errors.New("unsupported format")
	_, err := Map(context.Background(), 2, []int{1, 2, 3, 4}, func(ctx context.Context, n int) (int, error) {
		if n == 3 {
			return 0, boom
		}
		return n, nil
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected %v, got %v", boom, err)
	}
	if err.Error() != "item 3: unsupported format" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, 2, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		return n, nil
	}, nil)
	if err == nil {
		t.Fatal("Expected an error for a cancelled context")
	}
}

func TestMapEmpty(t *testing.T) {
	out, err := Map(context.Background(), 4, nil, func(ctx context.Context, n int) (int, error) {
		return n, nil
	}, nil)
	if err != nil || len(out) != 0 {
		t.Errorf("Expected empty result, got %v, %v", out, err)
	}
}
