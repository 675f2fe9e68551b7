// Package saga runs a sequence of independently committed steps and undoes
// the completed ones when a later step fails.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrCompensationFailed marks a saga whose rollback did not complete.
// Work done by the compensated steps may still be persisted.
var ErrCompensationFailed = errors.New("saga compensation failed")

// Step is one unit of work. Compensate is optional and is only invoked
// for steps whose Do succeeded.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga is an ordered list of steps.
type Saga struct {
	steps []Step
}

// New creates a saga from steps, executed in the given order.
func New(steps ...Step) *Saga {
	return &Saga{steps: steps}
}

// Run executes the steps in order. If a step fails, compensations of the
// completed steps run in reverse order and the step error is returned. When
// a compensation fails too, the result also wraps ErrCompensationFailed.
//
// Compensations run on a context detached from ctx cancellation.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Do(ctx); err != nil {
			stepErr := fmt.Errorf("%s: %w", step.Name, err)
			if compErr := s.compensate(context.WithoutCancel(ctx), i); compErr != nil {
				return errors.Join(stepErr, compErr)
			}
			return stepErr
		}
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, failed int) error {
	var errs []error
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			slog.Error("saga compensation failed", "step", step.Name, "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrCompensationFailed, step.Name, err))
		}
	}
	return errors.Join(errs...)
}
