package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// Config represents database connection pool settings. The job runner only
// needs a single long-lived session for advisory locking, so the defaults
// are small.
type Config struct {
	// MaxConns is the maximum number of connections in the pool
	MaxConns int32
	// MinConns is the minimum number of connections in the pool
	MinConns int32
	// HealthCheckPeriod is the interval between health checks
	HealthCheckPeriod time.Duration
	// ConnectTimeout is the timeout for establishing new connections
	ConnectTimeout time.Duration
	// PingRetries is how many times New pings before giving up
	PingRetries int
	// PingBackoff is the pause between ping attempts
	PingBackoff time.Duration
}

// DefaultConfig returns pool configuration for the slot lock session
func DefaultConfig() *Config {
	return &Config{
		MaxConns:          2,
		MinConns:          1,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		PingRetries:       3,
		PingBackoff:       2 * time.Second,
	}
}

// New creates a connection pool and verifies it with a retried ping
func New(ctx context.Context, databaseURL string, cfg *Config, log *logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = cfg.MaxConns
	config.MinConns = cfg.MinConns
	config.HealthCheckPeriod = cfg.HealthCheckPeriod
	config.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name": "jobrunner",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := ping(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// ping tests the database connection with retry logic
func ping(ctx context.Context, pool *pgxpool.Pool, cfg *Config, log *logger.Logger) error {
	retries := cfg.PingRetries
	if retries < 1 {
		retries = 1
	}

	for i := 0; i < retries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := pool.Ping(pingCtx)
		cancel()

		if err == nil {
			return nil
		}

		if i == retries-1 {
			return fmt.Errorf("failed to ping database after %d retries: %w", retries, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", i+1).
			Str("action", "db_ping_retry").
			Msg("Retrying database connection")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PingBackoff):
		}
	}

	return nil
}

// AcquireSession checks out a connection that stays with the caller until
// Release. Session-scoped state such as advisory locks lives on it.
func AcquireSession(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	return conn, nil
}

// Stats is a snapshot of pool usage, reported by the health endpoint
type Stats struct {
	AcquireCount  int64 `json:"acquire_count"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
}

// GetStats returns current pool statistics
func GetStats(pool *pgxpool.Pool) Stats {
	stats := pool.Stat()
	return Stats{
		AcquireCount:  stats.AcquireCount(),
		AcquiredConns: stats.AcquiredConns(),
		IdleConns:     stats.IdleConns(),
		MaxConns:      stats.MaxConns(),
		TotalConns:    stats.TotalConns(),
	}
}
