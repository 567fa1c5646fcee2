// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts is returned when a policy is built with a
// non-positive attempt count.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Default retry parameters for provider calls.
const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 1 * time.Second
	DefaultRateLimitDelay = 2 * time.Second
)

// Decision tells Retry whether to attempt again and how long to wait
// before doing so.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy decides, given the attempt number (1-based) and the error it
// produced, whether to retry. Policies are pure functions of their
// inputs so they can be unit-tested without clocks or providers.
type Policy func(attempt int, err error) Decision

// BackoffPolicy returns a Policy with exponential backoff:
// baseDelay * 2^(attempt-1), up to maxAttempts attempts. Rate-limit
// errors wait the server's retry-after hint when present, never less
// than rateLimitDelay. Auth errors are never retried.
func BackoffPolicy(maxAttempts int, baseDelay, rateLimitDelay time.Duration) Policy {
	return func(attempt int, err error) Decision {
		if attempt >= maxAttempts {
			return Decision{}
		}

		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		var perr *ProviderError
		if errors.As(err, &perr) {
			if !perr.Retryable() {
				return Decision{}
			}
			if perr.Kind == KindRateLimit {
				delay = rateLimitDelay
				if perr.RetryAfter > delay {
					delay = perr.RetryAfter
				}
			}
		}
		return Decision{Retry: true, Delay: delay}
	}
}

// DefaultPolicy is the retry policy used for provider calls when the
// caller does not supply one.
func DefaultPolicy() Policy {
	return BackoffPolicy(DefaultMaxAttempts, DefaultBaseDelay, DefaultRateLimitDelay)
}

// Retry runs operation until it succeeds, the policy declines, or the
// context is done. Returns the error from the last attempt.
func Retry(ctx context.Context, policy Policy, operation func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		decision := policy(attempt, err)
		if !decision.Retry {
			return err
		}
		slog.Debug("operation failed, will retry",
			"attempt", attempt, "delay", decision.Delay, "error", err)

		timer := time.NewTimer(decision.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
