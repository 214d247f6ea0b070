// Package retry runs operations under a bounded attempt budget with a
// pluggable backoff schedule.
//
// The request policy uses a linear schedule: after the k-th failed attempt
// the caller waits k times the base delay, and nothing is waited after the
// final attempt.
//
//	err := retry.Do(func() error {
//		return fetchOnce(ctx, url)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.NewLinearBackoff(time.Second),
//		Context:     ctx,
//	})
//
// When the budget runs out Do returns an *ExhaustedError that unwraps to
// the final attempt's error.
package retry
