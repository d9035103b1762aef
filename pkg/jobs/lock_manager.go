package jobs

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// isLockedQuery matches a single-key advisory lock, which pg_locks splits
// into classid (high 32 bits) and objid (low 32 bits) with objsubid 1
const isLockedQuery = `SELECT EXISTS (
	SELECT 1 FROM pg_locks
	WHERE locktype = 'advisory' AND granted AND objsubid = 1
	  AND ((classid::bigint << 32) | objid::bigint) = $1)`

// DBTX is the subset of a pgx connection used for advisory locking
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// SlotLock guards the execution slot across processes sharing a database.
// The in-process slot is always enforced by the Manager; a SlotLock is an
// additional, optional guard.
type SlotLock interface {
	// AcquireLock attempts to take the lock without waiting.
	// Returns true if acquired, false if held elsewhere.
	AcquireLock(ctx context.Context, name string) (bool, error)

	// ReleaseLock releases a lock taken by AcquireLock
	ReleaseLock(ctx context.Context, name string) error

	// IsLocked reports whether the lock is currently held by any process
	IsLocked(ctx context.Context, name string) (bool, error)
}

// PostgreSQLLockManager implements SlotLock using PostgreSQL advisory locks.
// Advisory locks belong to a session, so db must be a single dedicated
// connection rather than a pool.
type PostgreSQLLockManager struct {
	db      DBTX
	logger  *logger.Logger
	breaker *gobreaker.CircuitBreaker
}

// NewPostgreSQLLockManager creates a new PostgreSQL-based lock manager
func NewPostgreSQLLockManager(db DBTX) *PostgreSQLLockManager {
	log := logger.New("slot-lock-manager")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisory-lock",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Str("action", "breaker_state_change").
				Msg("Advisory lock circuit breaker changed state")
		},
	})

	return &PostgreSQLLockManager{
		db:      db,
		logger:  log,
		breaker: breaker,
	}
}

// generateLockID creates a consistent numeric lock ID from the lock name
// PostgreSQL advisory locks require int64 keys
func (p *PostgreSQLLockManager) generateLockID(name string) int64 {
	hash := md5.Sum([]byte(name))

	lockID := int64(0)
	for i := 0; i < 8; i++ {
		lockID = lockID<<8 + int64(hash[i])
	}

	if lockID < 0 {
		lockID = -lockID
	}

	return lockID
}

// queryBool runs a single-boolean query through the circuit breaker
func (p *PostgreSQLLockManager) queryBool(ctx context.Context, query string, lockID int64) (bool, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		var value bool
		if err := p.db.QueryRow(ctx, query, lockID).Scan(&value); err != nil {
			return false, err
		}
		return value, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, fmt.Errorf("advisory lock unavailable: %w", err)
		}
		return false, err
	}
	return result.(bool), nil
}

// AcquireLock attempts to acquire the advisory lock for name
func (p *PostgreSQLLockManager) AcquireLock(ctx context.Context, name string) (bool, error) {
	lockID := p.generateLockID(name)

	p.logger.Debug().
		Str("lock_name", name).
		Int64("lock_id", lockID).
		Str("action", "acquire_lock_attempt").
		Msg("Attempting to acquire slot lock")

	// pg_try_advisory_lock returns immediately
	acquired, err := p.queryBool(ctx, "SELECT pg_try_advisory_lock($1)", lockID)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("lock_name", name).
			Int64("lock_id", lockID).
			Str("action", "acquire_lock_failed").
			Msg("Failed to acquire slot lock")
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	if acquired {
		p.logger.Info().
			Str("lock_name", name).
			Int64("lock_id", lockID).
			Str("action", "lock_acquired").
			Msg("Successfully acquired slot lock")
	} else {
		p.logger.Debug().
			Str("lock_name", name).
			Int64("lock_id", lockID).
			Str("action", "lock_already_held").
			Msg("Slot lock already held by another instance")
	}

	return acquired, nil
}

// ReleaseLock releases the advisory lock for name
func (p *PostgreSQLLockManager) ReleaseLock(ctx context.Context, name string) error {
	lockID := p.generateLockID(name)

	released, err := p.queryBool(ctx, "SELECT pg_advisory_unlock($1)", lockID)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("lock_name", name).
			Int64("lock_id", lockID).
			Str("action", "release_lock_failed").
			Msg("Failed to release slot lock")
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}

	if released {
		p.logger.Info().
			Str("lock_name", name).
			Int64("lock_id", lockID).
			Str("action", "lock_released").
			Msg("Successfully released slot lock")
	} else {
		p.logger.Warn().
			Str("lock_name", name).
			Int64("lock_id", lockID).
			Str("action", "lock_not_held").
			Msg("Attempted to release slot lock that was not held")
	}

	return nil
}

// IsLocked reports whether any session, this one included, holds the lock.
// It reads pg_locks instead of probing with pg_try_advisory_lock because
// advisory locks are re-entrant within a session and a probe from the
// holder would always succeed.
func (p *PostgreSQLLockManager) IsLocked(ctx context.Context, name string) (bool, error) {
	lockID := p.generateLockID(name)

	held, err := p.queryBool(ctx, isLockedQuery, lockID)
	if err != nil {
		return false, fmt.Errorf("failed to check lock status %s: %w", name, err)
	}
	return held, nil
}
