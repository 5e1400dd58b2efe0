// Package backoff retries transient failures from model provider calls with
// exponential backoff. It is shared by the embedding client and the answer
// synthesizer.
package backoff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paperstack/paperstack/internal/log"
)

// Config configures retry behavior for provider calls.
type Config struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultConfig returns sensible defaults for LLM and embedding API calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Retryable reports whether an error should trigger a retry.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()

	// Rate limit errors - always retry
	if containsAny(errStr, "rate limit", "quota exceeded", "429", "resource exhausted") {
		return true
	}

	// Transient server errors - retry
	if containsAny(errStr, "500", "502", "503", "504", "unavailable", "overloaded") {
		return true
	}

	// Network errors - retry
	if containsAny(errStr, "connection reset", "connection refused", "timeout", "temporary") {
		return true
	}

	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// Do runs fn with exponential backoff until it succeeds, fails with a
// non-retryable error, exhausts the retry budget, or ctx is canceled.
// op names the operation for log lines.
func Do[T any](ctx context.Context, cfg Config, logger log.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("call succeeded after retry",
					"op", op,
					"attempts", attempt+1,
					"elapsed", time.Since(start),
				)
			}
			return result, nil
		}

		lastErr = err

		// Non-retryable error - fail immediately
		if !Retryable(err) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}

		// Last attempt - don't sleep
		if attempt == cfg.MaxRetries {
			break
		}

		logger.Debug("retrying after error",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: context canceled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return zero, fmt.Errorf("%s after %d retries (elapsed: %v): %w",
		op, cfg.MaxRetries, time.Since(start), lastErr)
}
