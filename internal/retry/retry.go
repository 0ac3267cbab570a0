package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy bounds the attempts and backoff of Do.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy retries three times, doubling from 500ms up to 4s.
var DefaultPolicy = Policy{
	MaxRetries:     3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     4 * time.Second,
}

// Classifier reports whether err is transient.
type Classifier func(err error) bool

// Do executes fn up to policy.MaxRetries+1 times with exponential backoff.
// Errors the classifier rejects fail immediately. Context cancellation stops retries.
func Do(ctx context.Context, desc string, policy Policy, retryable Classifier, fn func() error) error {
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if retryable == nil || !retryable(lastErr) {
			return lastErr
		}

		if attempt == policy.MaxRetries {
			break
		}

		slog.Warn("retrying after transient error",
			"operation", desc,
			"attempt", attempt+1,
			"max_attempts", policy.MaxRetries+1,
			"backoff", backoff,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %w)", desc, ctx.Err(), lastErr)
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return fmt.Errorf("%s: %d attempts exhausted: %w", desc, policy.MaxRetries+1, lastErr)
}
