package jobs

import "context"

// Runner is the opaque body of a job. Implementations report progress
// through job.SetProgress and must check for cancellation cooperatively,
// either by polling job.CancelRequested or by watching ctx.Done().
type Runner interface {
	// Execute performs the work. A returned error aborts the job with the
	// error text as its status message.
	Execute(ctx context.Context, job *Job) error
}

// RunnerFunc adapts a plain function to the Runner interface
type RunnerFunc func(ctx context.Context, job *Job) error

func (f RunnerFunc) Execute(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Resolver maps a (category, job type) pair to an implementation identifier
// and its merged initialization parameters
type Resolver interface {
	ResolveImplementation(category, jobType string) (string, error)
	ResolveInitParams(category, jobType string) (ParamSet, error)
}

// JobManager is the public contract of the execution manager
type JobManager interface {
	// Run admits and starts a job, returning its id without waiting for completion
	Run(ctx context.Context, category, jobType string, descriptor []byte) (int64, error)

	// Status returns the current snapshot of a job
	Status(id int64) (Status, error)

	// Cancel requests cancellation and waits for the job to terminate
	Cancel(ctx context.Context, id int64) (ResultCode, error)

	// Shutdown cancels the active job, if any, and releases the execution slot
	Shutdown(ctx context.Context) error
}
