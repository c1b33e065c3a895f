package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$0.00", FormatUSD(0))
	assert.Equal(t, "$999.50", FormatUSD(999.5))
	assert.Equal(t, "$1,000.00", FormatUSD(1000))
	assert.Equal(t, "$1,234,567.89", FormatUSD(1234567.89))
	assert.Equal(t, "-$42.10", FormatUSD(-42.1))
}

func TestFormatPnL(t *testing.T) {
	assert.Equal(t, "+$10.00", FormatPnL(10))
	assert.Equal(t, "-$10.00", FormatPnL(-10))
	assert.Equal(t, "$0.00", FormatPnL(0))
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "1.5", FormatQuantity(1.5))
	assert.Equal(t, "0.00012", FormatQuantity(0.00012))
	assert.Equal(t, "2", FormatQuantity(2))
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "999.00", FormatCompact(999))
	assert.Equal(t, "1.50K", FormatCompact(1500))
	assert.Equal(t, "2.25M", FormatCompact(2250000))
	assert.Equal(t, "-1.00B", FormatCompact(-1e9))
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 2,
	}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpWithLastError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 2,
	}, func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Retry(ctx, RetryConfig{
		MaxAttempts:   10,
		InitialDelay:  time.Hour,
		MaxDelay:      time.Hour,
		BackoffFactor: 2,
	}, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, CalculateBackoff(10, 100*time.Millisecond, time.Second, 2))
}

func TestNewIDUniqueAndSortable(t *testing.T) {
	const n = 1000
	seen := make(map[string]bool, n)

	prev := ""
	for i := 0; i < n; i++ {
		id := NewID()
		require.Len(t, id, 26)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		if prev != "" {
			assert.LessOrEqual(t, prev, id, "ids must not go backwards within a run")
		}
		prev = id
	}
}
