package jobpoller_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/jobpoller"
)

const testInterval = time.Millisecond

func TestRunCompletesExactlyOnce(t *testing.T) {
	var fetches, completed, failed atomic.Int32

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			n := fetches.Add(1)
			if n < 3 {
				return jobpoller.Snapshot{Status: enums.GenerationStatusGenerating}, nil
			}
			return jobpoller.Snapshot{
				Status:    enums.GenerationStatusCompleted,
				ResultURL: "https://cdn.example.com/tracks/abc.mp3",
			}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) {
			completed.Add(1)
			assert.Equal(t, "https://cdn.example.com/tracks/abc.mp3", resultURL)
		},
		OnFailed: func(ctx context.Context, reason string) { failed.Add(1) },
	})
	require.NoError(t, err)

	require.NoError(t, poller.Run(context.Background()))
	assert.Equal(t, int32(3), fetches.Load())
	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, int32(0), failed.Load())
}

func TestRunFailurePassesReasonVerbatim(t *testing.T) {
	var completed, failed atomic.Int32
	var gotReason string

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			return jobpoller.Snapshot{
				Status:       enums.GenerationStatusFailed,
				ErrorMessage: "prompt rejected by content filter",
			}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) { completed.Add(1) },
		OnFailed: func(ctx context.Context, reason string) {
			failed.Add(1)
			gotReason = reason
		},
	})
	require.NoError(t, err)

	require.NoError(t, poller.Run(context.Background()))
	assert.Equal(t, int32(0), completed.Load())
	assert.Equal(t, int32(1), failed.Load())
	assert.Equal(t, "prompt rejected by content filter", gotReason)
}

func TestRunFetchesImmediately(t *testing.T) {
	var fetches atomic.Int32

	// The interval is far longer than the test deadline, so the only way the
	// fetch can land is if the first attempt skips the wait.
	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: time.Hour,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			fetches.Add(1)
			return jobpoller.Snapshot{Status: enums.GenerationStatusCompleted, ResultURL: "u"}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) {},
		OnFailed:    func(ctx context.Context, reason string) {},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, poller.Run(ctx))
	assert.Equal(t, int32(1), fetches.Load())
}

func TestRunFailureDefaultsEmptyReason(t *testing.T) {
	var gotReason string

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			return jobpoller.Snapshot{Status: enums.GenerationStatusFailed}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) {},
		OnFailed:    func(ctx context.Context, reason string) { gotReason = reason },
	})
	require.NoError(t, err)

	require.NoError(t, poller.Run(context.Background()))
	assert.Equal(t, jobpoller.GenericFailureReason, gotReason)
}

func TestRunExhaustsAttemptBudget(t *testing.T) {
	var fetches atomic.Int32

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:        "image",
		Interval:    testInterval,
		MaxAttempts: 5,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			fetches.Add(1)
			return jobpoller.Snapshot{Status: enums.GenerationStatusPending}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) {
			t.Error("completion callback fired for a job that never resolved")
		},
		OnFailed: func(ctx context.Context, reason string) {
			t.Error("failure callback fired for a job that never resolved")
		},
	})
	require.NoError(t, err)

	err = poller.Run(context.Background())
	require.ErrorIs(t, err, jobpoller.ErrAttemptsExhausted)
	assert.Equal(t, int32(5), fetches.Load())
}

func TestRunDefaultsAttemptBudget(t *testing.T) {
	var fetches atomic.Int32

	poller, err := jobpoller.New(jobpoller.Config{
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			fetches.Add(1)
			return jobpoller.Snapshot{Status: enums.GenerationStatusGenerating}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) {},
		OnFailed:    func(ctx context.Context, reason string) {},
	})
	require.NoError(t, err)

	err = poller.Run(context.Background())
	require.ErrorIs(t, err, jobpoller.ErrAttemptsExhausted)
	assert.Equal(t, int32(jobpoller.DefaultMaxAttempts), fetches.Load())
}

func TestRunAbortsOnUnauthorized(t *testing.T) {
	var fetches atomic.Int32

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			fetches.Add(1)
			return jobpoller.Snapshot{}, fmt.Errorf("status fetch: %w", jobpoller.ErrUnauthorized)
		},
		OnCompleted: func(ctx context.Context, resultURL string) {
			t.Error("completion callback fired after auth failure")
		},
		OnFailed: func(ctx context.Context, reason string) {
			t.Error("failure callback fired after auth failure")
		},
	})
	require.NoError(t, err)

	err = poller.Run(context.Background())
	require.ErrorIs(t, err, jobpoller.ErrUnauthorized)
	assert.Equal(t, int32(1), fetches.Load(), "auth failure must not be retried")
}

func TestRunRetriesTransientFetchErrors(t *testing.T) {
	var fetches, completed atomic.Int32

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			n := fetches.Add(1)
			if n < 3 {
				return jobpoller.Snapshot{}, errors.New("connection reset by peer")
			}
			return jobpoller.Snapshot{Status: enums.GenerationStatusCompleted, ResultURL: "u"}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) { completed.Add(1) },
		OnFailed:    func(ctx context.Context, reason string) {},
	})
	require.NoError(t, err)

	require.NoError(t, poller.Run(context.Background()))
	assert.Equal(t, int32(3), fetches.Load())
	assert.Equal(t, int32(1), completed.Load())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var fetches atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	poller, err := jobpoller.New(jobpoller.Config{
		Kind:     "music",
		Interval: testInterval,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			if fetches.Add(1) == 2 {
				cancel()
			}
			return jobpoller.Snapshot{Status: enums.GenerationStatusGenerating}, nil
		},
		OnCompleted: func(ctx context.Context, resultURL string) {
			t.Error("completion callback fired after cancellation")
		},
		OnFailed: func(ctx context.Context, reason string) {
			t.Error("failure callback fired after cancellation")
		},
	})
	require.NoError(t, err)

	err = poller.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, fetches.Load(), int32(3))
}

func TestNewValidatesConfig(t *testing.T) {
	fetch := func(ctx context.Context) (jobpoller.Snapshot, error) { return jobpoller.Snapshot{}, nil }
	done := func(ctx context.Context, s string) {}

	_, err := jobpoller.New(jobpoller.Config{FetchStatus: fetch, OnCompleted: done, OnFailed: done})
	assert.Error(t, err, "interval required")

	_, err = jobpoller.New(jobpoller.Config{Interval: testInterval, OnCompleted: done, OnFailed: done})
	assert.Error(t, err, "fetch function required")

	_, err = jobpoller.New(jobpoller.Config{Interval: testInterval, FetchStatus: fetch, OnFailed: done})
	assert.Error(t, err, "completion callback required")

	_, err = jobpoller.New(jobpoller.Config{Interval: testInterval, FetchStatus: fetch, OnCompleted: done})
	assert.Error(t, err, "failure callback required")
}
