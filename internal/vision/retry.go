package vision

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"time"
)

// Retry policy for inference calls: the free-tier service rate limits
// aggressively, so rate-limit and overload errors are retried with
// exponential backoff plus jitter. Everything else fails immediately.
const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// retryable reports whether an error looks like a rate limit or overload
// signal worth retrying.
func retryable(err error) bool {
	s := strings.ToLower(err.Error())
	for _, hint := range []string{"429", "rate", "quota", "503", "overloaded", "resource exhausted"} {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

// Retry invokes fn with exponential backoff and jitter on retryable
// errors, re-raising the final error after the attempts are exhausted.
// The ctx deadline is honored between attempts.
func Retry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	backoff := initialBackoff

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !retryable(err) || attempt >= maxRetries {
			return zero, err
		}

		// Jitter: backoff scaled by 0.5–1.5.
		sleep := time.Duration(float64(backoff) * (0.5 + rand.Float64()))
		if sleep > maxBackoff {
			sleep = maxBackoff
		}
		log.Printf("[vision] rate limited, waiting %.1fs (attempt %d/%d)",
			sleep.Seconds(), attempt+1, maxRetries)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
	}
}
