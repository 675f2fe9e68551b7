package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) step(name string, doErr, compErr error) Step {
	return Step{
		Name: name,
		Do: func(_ context.Context) error {
			r.calls = append(r.calls, "do:"+name)
			return doErr
		},
		Compensate: func(_ context.Context) error {
			r.calls = append(r.calls, "undo:"+name)
			return compErr
		},
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	rec := &recorder{}
	err := New(rec.step("a", nil, nil), rec.step("b", nil, nil)).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"do:a", "do:b"}, rec.calls)
}

func TestRun_CompensatesCompletedStepsInReverse(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")

	err := New(
		rec.step("a", nil, nil),
		rec.step("b", nil, nil),
		rec.step("c", boom, nil),
	).Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCompensationFailed)
	assert.Contains(t, err.Error(), "c: boom")
	assert.Equal(t, []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}, rec.calls)
}

func TestRun_FirstStepFailureCompensatesNothing(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")

	err := New(rec.step("a", boom, nil), rec.step("b", nil, nil)).Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"do:a"}, rec.calls)
}

func TestRun_CompensationFailureIsReported(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	undoErr := errors.New("delete failed")

	err := New(rec.step("a", nil, undoErr), rec.step("b", boom, nil)).Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrCompensationFailed)
	assert.ErrorIs(t, err, undoErr)
}

func TestRun_NilCompensateIsSkipped(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	err := New(
		Step{Name: "a", Do: func(context.Context) error { ran = true; return nil }},
		Step{Name: "b", Do: func(context.Context) error { return boom }},
	).Run(context.Background())

	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

func TestRun_CompensationIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compCtxErr error

	err := New(
		Step{
			Name: "a",
			Do:   func(context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				compCtxErr = ctx.Err()
				return nil
			},
		},
		Step{Name: "b", Do: func(context.Context) error {
			cancel()
			return context.Canceled
		}},
	).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, compCtxErr)
}
