package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTaken = errors.New("taken")

func isTaken(err error) bool { return errors.Is(err, errTaken) }

func name(i int) int { return i }

func TestBounded_FirstCandidateWins(t *testing.T) {
	calls := 0
	got, err := Bounded(context.Background(), 5, name, func(_ context.Context, c int) error {
		calls++
		return nil
	}, isTaken)

	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, 1, calls)
}

func TestBounded_SkipsConflicts(t *testing.T) {
	taken := map[int]bool{0: true, 1: true}
	got, err := Bounded(context.Background(), 5, name, func(_ context.Context, c int) error {
		if taken[c] {
			return errTaken
		}
		return nil
	}, isTaken)

	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestBounded_Exhausted(t *testing.T) {
	calls := 0
	_, err := Bounded(context.Background(), 3, name, func(_ context.Context, _ int) error {
		calls++
		return errTaken
	}, isTaken)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTaken)
	assert.Equal(t, 3, calls)
}

func TestBounded_StopsOnOtherError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Bounded(context.Background(), 3, name, func(_ context.Context, _ int) error {
		calls++
		return boom
	}, isTaken)

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestBounded_ZeroAttemptsTriesOnce(t *testing.T) {
	calls := 0
	_, err := Bounded(context.Background(), 0, name, func(_ context.Context, _ int) error {
		calls++
		return nil
	}, isTaken)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBounded_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Bounded(ctx, 3, name, func(_ context.Context, _ int) error {
		t.Fatal("try must not be called")
		return nil
	}, isTaken)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_SucceedsAfterFailures(t *testing.T) {
	var retried []int
	calls := 0
	err := Backoff(context.Background(), 3, time.Millisecond, 2*time.Millisecond,
		func(_ context.Context, attempt int) error {
			calls++
			if attempt < 3 {
				return errors.New("down")
			}
			return nil
		},
		func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) },
	)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestBackoff_Exhausted(t *testing.T) {
	errDown := errors.New("down")
	err := Backoff(context.Background(), 2, time.Millisecond, time.Millisecond,
		func(context.Context, int) error { return errDown }, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errDown)
}

func TestBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Backoff(ctx, 5, time.Hour, time.Hour,
		func(context.Context, int) error { return errors.New("down") },
		func(int, time.Duration, error) { cancel() },
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{9, 16 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Delay(tt.attempt, time.Second, 16*time.Second), "attempt %d", tt.attempt)
	}
}
