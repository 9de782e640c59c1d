package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: 0},
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt))
		})
	}
}

func TestDefaultBackoffMatchesListingPolicy(t *testing.T) {
	b := DefaultExponentialBackoff()
	assert.Equal(t, time.Second, b.NextDelay(1))
	assert.Equal(t, 2*time.Second, b.NextDelay(2))
	assert.Equal(t, 4*time.Second, b.NextDelay(3))
	assert.Equal(t, 5*time.Second, b.NextDelay(4))
	assert.Equal(t, 10, DefaultConfig().MaxAttempts)
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int

	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeServerError, 503, "unavailable")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	calls := 0
	last := errs.New(errs.ErrorTypeNetwork, 0, "connection reset")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return last
	}, fastConfig(4))

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "max retry attempts (4) exceeded")
	assert.ErrorIs(t, err, last)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestDoBailsOnTerminalError(t *testing.T) {
	tests := []errs.ErrorType{
		errs.ErrorTypeNotFound,
		errs.ErrorTypeResourceExhausted,
		errs.ErrorTypeAuth,
	}

	for _, typ := range tests {
		t.Run(string(typ), func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), func(ctx context.Context) error {
				calls++
				return errs.New(typ, 400, "stop")
			}, fastConfig(10))

			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.NotContains(t, err.Error(), "max retry attempts")
			assert.True(t, errs.IsTerminal(err))
		})
	}
}

func TestDoNeverRetriesContextErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.Wrap(errs.ErrorTypeNetwork, context.DeadlineExceeded, "request failed")
	}, fastConfig(5))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestDoContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(0)
	cfg.Backoff = &ConstantBackoff{Delay: time.Hour}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	start := time.Now()
	err := Do(ctx, func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeRateLimit, 429, "slow down")
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	}, fastConfig(3))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ErrorTypeParsing, 200, "malformed body")
		}
		return "page", nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "page", got)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, DefaultRetryIf(errors.New("something odd")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeSigningFailed, 0, "sign")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeAuth, 401, "login")))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, 0), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestRetrierLogsRetries(t *testing.T) {
	tl := logger.NewTestLogger()
	r := NewRetrier(fastConfig(2)).WithLogger(tl)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeNetwork, 0, "timeout")
	})

	require.Error(t, err)
	assert.True(t, tl.HasMessage("warn", "Retrying"))
	assert.True(t, tl.HasMessage("error", "max retry attempts exceeded"))
	assert.Equal(t, 3, r.WithMaxAttempts(3).Config().MaxAttempts)
}
