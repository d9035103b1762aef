// Package builtin provides reference runners that are always registered.
// They double as fixtures for exercising the manager end to end.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iddaa-lens/jobrunner/pkg/jobs"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

const (
	StepsID = "builtin.steps"
	FailID  = "builtin.fail"
	NoopID  = "builtin.noop"
)

// Register adds the builtin runners to f
func Register(f *jobs.Factory) error {
	builtins := map[string]jobs.Constructor{
		StepsID: func() (jobs.Runner, error) { return &StepsRunner{}, nil },
		FailID:  func() (jobs.Runner, error) { return &FailRunner{}, nil },
		NoopID:  func() (jobs.Runner, error) { return NoopRunner{}, nil },
	}
	for id, ctor := range builtins {
		if err := f.Register(id, ctor); err != nil {
			return err
		}
	}
	return nil
}

// StepsRunner walks through a fixed number of steps, sleeping between them
// and checking for cancellation before each one.
//
// Params: steps (default 10), interval (default 1s), message (fmt template
// receiving the step number and total, default "step %d of %d").
type StepsRunner struct{}

func (r *StepsRunner) Execute(ctx context.Context, job *jobs.Job) error {
	params := job.Params()
	steps := params.Int("steps", 10)
	interval := params.Duration("interval", time.Second)
	template := params.String("message", "step %d of %d")

	if steps < 1 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	log := logger.FromContext(ctx, "builtin-steps")

	for step := 1; step <= steps; step++ {
		if job.CancelRequested() {
			job.SetMessage(fmt.Sprintf("cancelled before step %d of %d", step, steps))
			log.Info().
				Int("step", step).
				Str("action", "cancel_honoured").
				Msg("Stopping at cancel request")
			return nil
		}

		select {
		case <-ctx.Done():
			job.SetMessage(fmt.Sprintf("cancelled during step %d of %d", step, steps))
			return ctx.Err()
		case <-time.After(interval):
		}

		percent := step * 100 / steps
		if step < steps && percent >= 100 {
			percent = 99
		}
		job.SetProgress(percent, fmt.Sprintf(template, step, steps))
	}

	return nil
}

// FailRunner advances to fail_at percent and then aborts with reason.
// Params: fail_at (default 50), interval (default 0), reason.
type FailRunner struct{}

func (r *FailRunner) Execute(ctx context.Context, job *jobs.Job) error {
	params := job.Params()
	failAt := params.Int("fail_at", 50)
	interval := params.Duration("interval", 0)
	reason := params.String("reason", "job failed")

	if interval > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	job.SetProgress(failAt, "failing")
	return errors.New(reason)
}

// NoopRunner completes immediately
type NoopRunner struct{}

func (NoopRunner) Execute(ctx context.Context, job *jobs.Job) error {
	job.SetProgress(100, "done")
	return nil
}
