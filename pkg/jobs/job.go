package jobs

import (
	"sync"
	"time"
)

// AbortedPercent is the percent value that marks a job as aborted by a fatal error
const AbortedPercent = -1

// State is the externally visible lifecycle state of a job
type State string

const (
	StateRunning          State = "running"
	StateCompletedSuccess State = "completed"
	StateCompletedAborted State = "aborted"
	StateCancelled        State = "cancelled"
)

// Status is a point-in-time snapshot of a job
type Status struct {
	ID              int64      `json:"job_id"`
	Category        string     `json:"category"`
	JobType         string     `json:"job_type"`
	State           State      `json:"state"`
	Percent         int        `json:"status"`
	Message         string     `json:"message"`
	CancelRequested bool       `json:"cancel_requested"`
	Completed       bool       `json:"completed"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// Job is the run-time record of one admitted execution.
// Progress fields are guarded by their own mutex so status reads never
// contend with the manager's admission lock.
type Job struct {
	id         int64
	category   string
	jobType    string
	implID     string
	descriptor []byte
	params     ParamSet

	mu              sync.RWMutex
	percent         int
	message         string
	cancelRequested bool
	completed       bool
	startedAt       time.Time
	endedAt         time.Time

	cancelCh chan struct{}
	done     chan struct{}
}

func newJob(category, jobType, implID string, descriptor []byte, params ParamSet) *Job {
	return &Job{
		category:   category,
		jobType:    jobType,
		implID:     implID,
		descriptor: descriptor,
		params:     params,
		percent:    1,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// NewDetachedJob creates a job record that is not owned by any manager.
// Runner implementations use it to exercise their bodies in isolation.
func NewDetachedJob(descriptor []byte, params ParamSet) *Job {
	return newJob("", "", "", descriptor, params)
}

func (j *Job) ID() int64          { return j.id }
func (j *Job) Category() string   { return j.category }
func (j *Job) JobType() string    { return j.jobType }
func (j *Job) ImplID() string     { return j.implID }
func (j *Job) Descriptor() []byte { return j.descriptor }
func (j *Job) Params() ParamSet   { return j.params }

// SetProgress records forward progress. Values are clamped to [1,100],
// decreases are ignored and nothing changes once the job is completed or aborted.
func (j *Job) SetProgress(percent int, message string) {
	if percent < 1 {
		percent = 1
	}
	if percent > 100 {
		percent = 100
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.completed || j.percent == AbortedPercent {
		return
	}
	if percent > j.percent {
		j.percent = percent
	}
	j.message = message
}

// SetMessage updates the status message without touching percent
func (j *Job) SetMessage(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.completed {
		return
	}
	j.message = message
}

// Abort moves the job to the abort sentinel. It may be called at any time
// before completion.
func (j *Job) Abort(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.completed {
		return
	}
	j.percent = AbortedPercent
	j.message = message
}

// CancelRequested reports whether a cancel has been requested
func (j *Job) CancelRequested() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cancelRequested
}

// Cancelled is closed when a cancel is requested
func (j *Job) Cancelled() <-chan struct{} {
	return j.cancelCh
}

// Done is closed exactly once when the job's worker terminates
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Completed reports whether the worker has terminated
func (j *Job) Completed() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.completed
}

// requestCancel sets the cancel flag. It reports false if the flag was already set.
func (j *Job) requestCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelRequested {
		return false
	}
	j.cancelRequested = true
	close(j.cancelCh)
	return true
}

func (j *Job) markStarted(now time.Time) {
	j.mu.Lock()
	j.startedAt = now
	j.mu.Unlock()
}

// finish applies the terminal transition. Only the first call has any effect.
func (j *Job) finish(execErr error, now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.completed {
		return false
	}

	switch {
	case execErr != nil:
		j.percent = AbortedPercent
		j.message = execErr.Error()
	case j.percent == AbortedPercent:
		// runner aborted itself and returned cleanly
	case !j.cancelRequested:
		j.percent = 100
	}

	j.completed = true
	j.endedAt = now
	close(j.done)
	return true
}

// Snapshot returns the current values of the job
func (j *Job) Snapshot() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Status{
		ID:              j.id,
		Category:        j.category,
		JobType:         j.jobType,
		Percent:         j.percent,
		Message:         j.message,
		CancelRequested: j.cancelRequested,
		Completed:       j.completed,
		StartedAt:       j.startedAt,
		State:           deriveState(j.percent, j.completed, j.cancelRequested),
	}
	if j.completed {
		ended := j.endedAt
		s.EndedAt = &ended
	}
	return s
}

func deriveState(percent int, completed, cancelRequested bool) State {
	switch {
	case percent == AbortedPercent:
		if completed {
			return StateCompletedAborted
		}
		return StateRunning
	case !completed:
		return StateRunning
	case percent == 100:
		return StateCompletedSuccess
	case cancelRequested:
		return StateCancelled
	default:
		return StateCompletedSuccess
	}
}

func (j *Job) endedBefore(t time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.completed && j.endedAt.Before(t)
}
