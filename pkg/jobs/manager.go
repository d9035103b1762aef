package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// ResultCode is the outcome of a cancel request
type ResultCode int

const (
	ResultCancelled        ResultCode = 1
	ResultAlreadyCompleted ResultCode = 2
	ResultAborted          ResultCode = 3
)

func (r ResultCode) String() string {
	switch r {
	case ResultCancelled:
		return "cancelled"
	case ResultAlreadyCompleted:
		return "already_completed"
	case ResultAborted:
		return "aborted"
	default:
		return "result(" + strconv.Itoa(int(r)) + ")"
	}
}

// classify maps a terminal percent onto a cancel result code
func classify(percent int) ResultCode {
	switch {
	case percent == AbortedPercent:
		return ResultAborted
	case percent < 100:
		return ResultCancelled
	default:
		return ResultAlreadyCompleted
	}
}

const (
	DefaultPollInterval = time.Second
	DefaultSlotLockName = "jobrunner:execution-slot"
)

// Config holds the tunables of a Manager
type Config struct {
	// PollInterval is the heartbeat cadence while Cancel and Shutdown wait
	PollInterval time.Duration
	// MaxWait bounds how long Cancel and Shutdown wait; zero waits forever
	MaxWait time.Duration
	// SlotLock optionally guards the slot across processes
	SlotLock SlotLock
	// SlotLockName is the name passed to SlotLock
	SlotLockName string
	Logger       *logger.Logger
}

// DefaultConfig returns the legacy behaviour: one second polling, unbounded waits
func DefaultConfig() *Config {
	return &Config{
		PollInterval: DefaultPollInterval,
		SlotLockName: DefaultSlotLockName,
	}
}

// Manager admits at most one active job at a time, runs each admitted job
// on its own goroutine and keeps every job queryable by id.
type Manager struct {
	resolver Resolver
	factory  *Factory
	registry *Registry
	logger   *logger.Logger

	pollInterval time.Duration
	maxWait      time.Duration
	slotLock     SlotLock
	slotLockName string

	// mu guards the execution slot
	mu     sync.Mutex
	active *Job
}

var _ JobManager = (*Manager)(nil)

// NewManager creates a manager around a resolver and a factory
func NewManager(resolver Resolver, factory *Factory, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Manager{
		resolver:     resolver,
		factory:      factory,
		registry:     NewRegistry(),
		logger:       config.Logger,
		pollInterval: config.PollInterval,
		maxWait:      config.MaxWait,
		slotLock:     config.SlotLock,
		slotLockName: config.SlotLockName,
	}
	if m.logger == nil {
		m.logger = logger.New("job-manager")
	}
	if m.pollInterval <= 0 {
		m.pollInterval = DefaultPollInterval
	}
	if m.slotLockName == "" {
		m.slotLockName = DefaultSlotLockName
	}
	return m
}

// Run resolves the job definition, builds a runner and, if the execution
// slot is free, registers and starts it. It returns without waiting.
//
// Resolution failures are split by cause: an empty category or job type is
// InvalidCategoryOrType, a well-formed pair the resolver does not know is
// JobDefinitionNotFound. Resolver errors that already carry a code pass
// through unchanged.
func (m *Manager) Run(ctx context.Context, category, jobType string, descriptor []byte) (int64, error) {
	if category == "" || jobType == "" {
		return 0, InvalidCategoryOrType(category, jobType)
	}

	implID, err := m.resolver.ResolveImplementation(category, jobType)
	if err != nil {
		return 0, resolveError(category, jobType, err)
	}
	params, err := m.resolver.ResolveInitParams(category, jobType)
	if err != nil {
		return 0, resolveError(category, jobType, err)
	}

	runner, err := m.factory.Create(implID)
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("category", category).
			Str("job_type", jobType).
			Str("impl_id", implID).
			Str("action", "runner_construction_failed").
			Msg("Failed to construct job runner")
		return 0, AsError(err)
	}

	job := newJob(category, jobType, implID, descriptor, params)

	id, err := m.admit(ctx, job)
	if err != nil {
		return 0, err
	}

	jobLogger := requestLogger(ctx, m.logger).WithJob(id, category, jobType)
	jobLogger.LogJobStart(implID)

	go m.execute(job, runner, jobLogger)

	return id, nil
}

// admit assigns the slot to job and registers it. The check-and-assign
// sequence runs under m.mu so at most one caller sees the slot as free.
func (m *Manager) admit(ctx context.Context, job *Job) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.logger.Info().
			Int64("active_job_id", m.active.id).
			Str("category", job.category).
			Str("job_type", job.jobType).
			Str("action", "job_rejected").
			Msg("Execution slot is occupied")
		return 0, JobAlreadyRunning()
	}

	if m.slotLock != nil {
		acquired, err := m.slotLock.AcquireLock(ctx, m.slotLockName)
		if err != nil {
			return 0, UnexpectedError(err)
		}
		if !acquired {
			return 0, JobAlreadyRunning()
		}
	}

	id := m.registry.Add(job)
	job.markStarted(time.Now())
	m.active = job
	return id, nil
}

// complete is the completion callback. It records the terminal state and
// frees the slot only when job is the current holder, so stale or repeated
// notifications are harmless.
func (m *Manager) complete(job *Job, execErr error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	finished := job.finish(execErr, time.Now())
	m.releaseLocked(job)
	return finished
}

// releaseIfHolder frees the slot if job still holds it
func (m *Manager) releaseIfHolder(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(job)
}

func (m *Manager) releaseLocked(job *Job) {
	if m.active != job {
		return
	}
	m.active = nil

	if m.slotLock != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.slotLock.ReleaseLock(ctx, m.slotLockName); err != nil {
			m.logger.Error().
				Err(err).
				Int64("job_id", job.id).
				Str("action", "slot_lock_release_failed").
				Msg("Failed to release cluster slot lock")
		}
	}

	m.logger.Debug().
		Int64("job_id", job.id).
		Str("action", "slot_released").
		Msg("Execution slot released")
}

// Status returns the current snapshot of job id. It never blocks on the slot.
func (m *Manager) Status(id int64) (Status, error) {
	job, ok := m.registry.Get(id)
	if !ok {
		return Status{}, InvalidJobID(id)
	}
	return job.Snapshot(), nil
}

// Cancel sets the cancel flag of job id and waits for it to terminate
func (m *Manager) Cancel(ctx context.Context, id int64) (ResultCode, error) {
	job, ok := m.registry.Get(id)
	if !ok {
		return 0, InvalidJobID(id)
	}

	return m.cancelAndWait(ctx, job)
}

func (m *Manager) cancelAndWait(ctx context.Context, job *Job) (ResultCode, error) {
	if job.requestCancel() {
		m.logger.Info().
			Int64("job_id", job.id).
			Str("action", "cancel_requested").
			Msg("Cancel requested")
	}

	if err := m.waitForCompletion(ctx, job); err != nil {
		m.logger.Warn().
			Err(err).
			Int64("job_id", job.id).
			Str("action", "cancel_wait_aborted").
			Msg("Stopped waiting for job to terminate")
		return 0, UnexpectedError(err)
	}

	m.releaseIfHolder(job)

	result := classify(job.Snapshot().Percent)
	m.logger.Info().
		Int64("job_id", job.id).
		Str("result", result.String()).
		Str("action", "cancel_complete").
		Msg("Cancel request finished")
	return result, nil
}

// waitForCompletion blocks until the job signals completion, the caller's
// context ends or the configured maximum wait elapses
func (m *Manager) waitForCompletion(ctx context.Context, job *Job) error {
	select {
	case <-job.Done():
		return nil
	default:
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if m.maxWait > 0 {
		timer := time.NewTimer(m.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	start := time.Now()
	for {
		select {
		case <-job.Done():
			return nil
		case <-ticker.C:
			m.logger.Debug().
				Int64("job_id", job.id).
				Dur("waited", time.Since(start)).
				Str("action", "cancel_waiting").
				Msg("Waiting for job to honour cancel request")
		case <-deadline:
			return fmt.Errorf("job %d still running after %s: %w", job.id, m.maxWait, context.DeadlineExceeded)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Shutdown cancels the active job, waits for it and releases the slot.
// It is a no-op when the slot is free. If the wait ends before the job
// terminates the error is returned and the job keeps the slot.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	job := m.active
	m.mu.Unlock()

	if job == nil {
		m.logger.Info().
			Str("action", "shutdown").
			Msg("Job manager stopped with no active job")
		return nil
	}

	m.logger.Info().
		Int64("job_id", job.id).
		Str("action", "shutdown_cancel").
		Msg("Cancelling active job for shutdown")

	result, err := m.cancelAndWait(ctx, job)
	if err != nil {
		// the job is still running, so the slot stays with it
		return fmt.Errorf("shutdown: job %d did not stop: %w", job.id, err)
	}

	m.logger.Info().
		Int64("job_id", job.id).
		Str("result", result.String()).
		Str("action", "shutdown_complete").
		Msg("Job manager stopped")
	return nil
}

// Active returns the id of the job holding the execution slot
func (m *Manager) Active() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return 0, false
	}
	return m.active.id, true
}

// SlotLockHeld reports whether the cluster slot lock is held by any
// instance. enabled is false when no SlotLock is configured.
func (m *Manager) SlotLockHeld(ctx context.Context) (held, enabled bool, err error) {
	if m.slotLock == nil {
		return false, false, nil
	}
	held, err = m.slotLock.IsLocked(ctx, m.slotLockName)
	return held, true, err
}

// List returns snapshots of all retained jobs ordered by id
func (m *Manager) List() []Status {
	jobs := m.registry.List()
	out := make([]Status, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	return out
}

// PruneHistory drops completed jobs that ended more than retention ago
func (m *Manager) PruneHistory(retention time.Duration) int {
	removed := m.registry.PruneCompleted(time.Now().Add(-retention))
	if removed > 0 {
		m.logger.Info().
			Int("removed", removed).
			Int("retained", m.registry.Len()).
			Dur("retention", retention).
			Str("action", "history_pruned").
			Msg("Pruned completed jobs from history")
	}
	return removed
}

func resolveError(category, jobType string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return JobDefinitionNotFound(category, jobType, err)
}

// requestLogger prefers the request-scoped logger carried by ctx and
// otherwise tags the manager logger with a fresh correlation id
func requestLogger(ctx context.Context, base *logger.Logger) *logger.Logger {
	if l, ok := ctx.Value(logger.LoggerKey).(*logger.Logger); ok {
		return l
	}
	return base.WithRequestID(uuid.New().String())
}
