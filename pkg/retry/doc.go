// Package retry provides bounded retry and polling primitives.
//
// Do and DoWithResult retry an operation with a BackoffStrategy until it
// succeeds, a non-retryable error is returned or the attempt budget runs out.
// They are used for handoff writes, where a transient store failure should
// not lose a finished collection.
//
// PollUntil is the bounded wait-then-check loop shared by navigation
// confirmation and the page-load wait:
//
//	changed, err := retry.PollUntil(ctx, func(attempt int) (bool, error) {
//		return observer.Changed(ctx, before)
//	}, retry.NewJitterBackoff(400*time.Millisecond, 200*time.Millisecond, nil), 15)
//
// Budgets are counted in attempts, not wall-clock time, so behavior stays
// the same under variable page latency. Every wait honors context cancellation.
package retry
