package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffPolicy(t *testing.T) {
	policy := BackoffPolicy(3, time.Second, 2*time.Second)
	generic := errors.New("boom")

	t.Run("exponential delays", func(t *testing.T) {
		d1 := policy(1, generic)
		d2 := policy(2, generic)
		require.True(t, d1.Retry)
		require.True(t, d2.Retry)
		assert.Equal(t, time.Second, d1.Delay)
		assert.Equal(t, 2*time.Second, d2.Delay)
	})

	t.Run("stops at max attempts", func(t *testing.T) {
		assert.False(t, policy(3, generic).Retry)
		assert.False(t, policy(4, generic).Retry)
	})

	t.Run("auth errors are terminal", func(t *testing.T) {
		err := &ProviderError{Kind: KindAuth, Op: "embed", Err: generic}
		assert.False(t, policy(1, err).Retry)
	})

	t.Run("rate limit honors server hint", func(t *testing.T) {
		err := &ProviderError{Kind: KindRateLimit, Op: "extract", RetryAfter: 5 * time.Second, Err: generic}
		d := policy(1, err)
		require.True(t, d.Retry)
		assert.Equal(t, 5*time.Second, d.Delay)
	})

	t.Run("rate limit floor without hint", func(t *testing.T) {
		err := &ProviderError{Kind: KindRateLimit, Op: "extract", Err: generic}
		d := policy(1, err)
		require.True(t, d.Retry)
		assert.Equal(t, 2*time.Second, d.Delay)
	})

	t.Run("wrapped provider errors are recognized", func(t *testing.T) {
		inner := &ProviderError{Kind: KindAuth, Op: "complete", Err: generic}
		wrapped := errors.Join(errors.New("call failed"), inner)
		assert.False(t, policy(1, wrapped).Retry)
	})
}

func TestRetry(t *testing.T) {
	immediate := func(attempt int, err error) Decision {
		return Decision{Retry: attempt < 3}
	}

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), immediate, func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("recovers on later attempt", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), immediate, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		last := errors.New("still broken")
		err := Retry(context.Background(), immediate, func(context.Context) error {
			calls++
			return last
		})
		assert.ErrorIs(t, err, last)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, immediate, func(context.Context) error {
			return errors.New("never retried")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancellation interrupts the backoff sleep", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := func(int, error) Decision {
			return Decision{Retry: true, Delay: time.Minute}
		}
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		err := Retry(ctx, slow, func(context.Context) error {
			return errors.New("transient")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}
