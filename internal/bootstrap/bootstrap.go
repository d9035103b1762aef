package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iddaa-lens/jobrunner/internal/config"
	"github.com/iddaa-lens/jobrunner/pkg/database/pool"
	"github.com/iddaa-lens/jobrunner/pkg/jobdef"
	"github.com/iddaa-lens/jobrunner/pkg/jobs"
	"github.com/iddaa-lens/jobrunner/pkg/jobs/builtin"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// Runtime bundles the manager with the resources it depends on
type Runtime struct {
	Manager     *jobs.Manager
	Definitions *jobdef.Definitions
	Factory     *jobs.Factory

	dbPool  *pgxpool.Pool
	session *pgxpool.Conn
}

// New loads job definitions, registers runners and builds the manager.
// When a database URL is configured the execution slot is also guarded
// by a PostgreSQL advisory lock held on a dedicated session.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	defs, err := jobdef.Load(cfg.Jobs.DefinitionsPath)
	if err != nil {
		return nil, err
	}

	factory := jobs.NewFactory()
	if err := builtin.Register(factory); err != nil {
		return nil, fmt.Errorf("failed to register builtin runners: %w", err)
	}

	rt := &Runtime{
		Definitions: defs,
		Factory:     factory,
	}

	managerCfg := jobs.DefaultConfig()
	managerCfg.PollInterval = cfg.Jobs.PollInterval
	managerCfg.MaxWait = cfg.Jobs.MaxWait
	managerCfg.SlotLockName = cfg.Jobs.SlotLockName
	managerCfg.Logger = log

	if cfg.Database.URL != "" {
		rt.dbPool, err = pool.New(ctx, cfg.Database.URL, nil, log)
		if err != nil {
			return nil, err
		}
		rt.session, err = pool.AcquireSession(ctx, rt.dbPool)
		if err != nil {
			rt.dbPool.Close()
			return nil, err
		}
		managerCfg.SlotLock = jobs.NewPostgreSQLLockManager(rt.session)

		log.Info().
			Str("action", "slot_lock_enabled").
			Str("lock_name", cfg.Jobs.SlotLockName).
			Msg("Cluster-wide execution slot lock enabled")
	}

	rt.Manager = jobs.NewManager(defs, factory, managerCfg)

	log.Info().
		Int("definitions", len(defs.Definitions())).
		Strs("implementations", factory.Implementations()).
		Str("action", "runtime_ready").
		Msg("Job runtime initialised")

	return rt, nil
}

// PoolStats returns a pool statistics reader, or nil without a database
func (rt *Runtime) PoolStats() func() pool.Stats {
	if rt.dbPool == nil {
		return nil
	}
	return func() pool.Stats { return pool.GetStats(rt.dbPool) }
}

// Close releases database resources. Call it after Manager.Shutdown.
func (rt *Runtime) Close() {
	if rt.session != nil {
		rt.session.Release()
	}
	if rt.dbPool != nil {
		rt.dbPool.Close()
	}
}
