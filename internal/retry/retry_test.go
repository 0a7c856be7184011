package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	result, ok, err := Do(context.Background(), Policy{Attempts: 3}, discardLogger(), "op",
		func() (string, error) {
			calls++
			return "value", nil
		})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", result)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, ok, err := Do(context.Background(), Policy{Attempts: 3}, discardLogger(), "op",
		func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("boom")
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustionFatal(t *testing.T) {
	calls := 0
	failure := errors.New("boom")

	_, ok, err := Do(context.Background(), Policy{Attempts: 3, Fatal: true}, discardLogger(), "op",
		func() (int, error) {
			calls++
			return 0, failure
		})

	assert.Equal(t, 3, calls, "operation must run exactly Attempts times")
	assert.False(t, ok)
	require.ErrorIs(t, err, failure)
}

func TestDo_ExhaustionNonFatalReturnsSentinel(t *testing.T) {
	calls := 0
	result, ok, err := Do(context.Background(), Policy{Attempts: 3}, discardLogger(), "op",
		func() (string, error) {
			calls++
			return "partial", errors.New("boom")
		})

	assert.Equal(t, 3, calls)
	require.NoError(t, err)
	assert.False(t, ok, "ok=false marks the missing-result sentinel")
	assert.Zero(t, result, "no partial result may leak out")
}

func TestDo_NonRetryablePropagatesImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("bad request")

	_, ok, err := Do(context.Background(),
		Policy{
			Attempts:  5,
			Retryable: func(err error) bool { return !errors.Is(err, fatal) },
		},
		discardLogger(), "op",
		func() (int, error) {
			calls++
			return 0, fatal
		})

	assert.Equal(t, 1, calls)
	assert.False(t, ok)
	require.ErrorIs(t, err, fatal)
}

func TestDo_SingleAttempt(t *testing.T) {
	calls := 0
	_, ok, err := Do(context.Background(), Policy{Attempts: 1, Fatal: true}, discardLogger(), "op",
		func() (int, error) {
			calls++
			return 0, errors.New("boom")
		})

	assert.Equal(t, 1, calls)
	assert.False(t, ok)
	assert.Error(t, err)
}
