package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "ttscraper/pkg/errors"
)

func TestLinearBackoffSchedule(t *testing.T) {
	backoff := NewLinearBackoff(100 * time.Millisecond)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{7, 700 * time.Millisecond},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, backoff.NextDelay(test.attempt), "attempt %d", test.attempt)
	}
}

func TestLinearBackoffCapped(t *testing.T) {
	backoff := &LinearBackoff{
		BaseDelay: 100 * time.Millisecond,
		Increment: 100 * time.Millisecond,
		MaxDelay:  250 * time.Millisecond,
	}

	assert.Equal(t, 200*time.Millisecond, backoff.NextDelay(2))
	assert.Equal(t, 250*time.Millisecond, backoff.NextDelay(3))
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, 400*time.Millisecond, backoff.NextDelay(3))
	assert.Equal(t, 1*time.Second, backoff.NextDelay(5))
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := Do(op, &Config{
		MaxAttempts: 5,
		Backoff:     &LinearBackoff{BaseDelay: 5 * time.Millisecond},
		Context:     context.Background(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWaitsBetweenAttemptsOnly(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	last := errors.New("third failure")

	start := time.Now()
	err := Do(func() error {
		attempts++
		if attempts == 3 {
			return last
		}
		return errors.New("failure")
	}, &Config{
		MaxAttempts: 3,
		Backoff:     NewLinearBackoff(20 * time.Millisecond),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})
	elapsed := time.Since(start)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Same(t, last, exhausted.Err)
	assert.ErrorIs(t, err, last)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond}, delays)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestSingleAttemptNeverWaits(t *testing.T) {
	called := false
	err := Do(func() error { return errors.New("down") }, &Config{
		MaxAttempts: 1,
		Backoff:     NewLinearBackoff(time.Hour),
		OnRetry:     func(int, error, time.Duration) { called = true },
	})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	extractionErr := errs.NewExtraction("bad payload", nil)

	err := Do(func() error {
		attempts++
		return extractionErr
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &LinearBackoff{BaseDelay: 5 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
	})

	assert.Same(t, extractionErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &LinearBackoff{BaseDelay: 50 * time.Millisecond},
		Context:     ctx,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("connection refused")))
	assert.True(t, DefaultRetryIf(&errs.StatusError{StatusCode: 503}))
	assert.False(t, DefaultRetryIf(errs.NewUnsupportedType("music")))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &LinearBackoff{BaseDelay: 5 * time.Millisecond},
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}
