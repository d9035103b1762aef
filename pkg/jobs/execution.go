package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// errWorkerExited aborts a job whose worker goroutine ended without the
// runner returning, e.g. through runtime.Goexit
var errWorkerExited = errors.New("worker exited without completing")

// execute is the body of a job's worker goroutine. Whatever the runner
// does, the completion callback fires exactly once.
func (m *Manager) execute(job *Job, runner Runner, jobLogger *logger.Logger) {
	start := time.Now()

	returned := false
	defer func() {
		if returned {
			return
		}
		jobLogger.Error().
			Err(errWorkerExited).
			Str("action", "worker_exited").
			Dur("duration", time.Since(start)).
			Msg("Job worker exited without returning")
		m.finalize(job, errWorkerExited, start, jobLogger)
	}()

	ctx, cancel := context.WithCancel(jobLogger.ToContext(context.Background()))
	defer cancel()

	// the cancel flag also cancels the runner's context
	go func() {
		select {
		case <-job.Cancelled():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := runSafely(ctx, job, runner)
	returned = true
	if err != nil && job.CancelRequested() && errors.Is(err, context.Canceled) {
		// returning ctx.Err() is how a runner honours the cancel
		err = nil
	}
	if err != nil {
		jobLogger.Error().
			Err(err).
			Str("action", "job_failed").
			Dur("duration", time.Since(start)).
			Msg("Job execution aborted")
	}

	m.finalize(job, err, start, jobLogger)
}

// finalize runs the completion callback and logs the terminal state
func (m *Manager) finalize(job *Job, err error, start time.Time, jobLogger *logger.Logger) {
	if !m.complete(job, err) {
		jobLogger.Warn().
			Str("action", "duplicate_completion").
			Msg("Ignoring repeated completion signal")
		return
	}

	s := job.Snapshot()
	jobLogger.LogJobComplete(time.Since(start), string(s.State), s.Percent, s.Message)
}

// runSafely converts panics inside the runner into an abort
func runSafely(ctx context.Context, job *Job, runner Runner) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return runner.Execute(ctx, job)
}
