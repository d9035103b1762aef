package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

// DefaultPruneSchedule runs history pruning every ten minutes
const DefaultPruneSchedule = "@every 10m"

// HistoryPruner periodically drops old completed jobs from a manager's registry
type HistoryPruner struct {
	cron      *cron.Cron
	manager   *Manager
	retention time.Duration
	logger    *logger.Logger
}

// NewHistoryPruner schedules pruning of jobs that ended more than retention ago
func NewHistoryPruner(manager *Manager, retention time.Duration, schedule string) (*HistoryPruner, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	log := manager.logger.Logger.With().Str("component", "history-pruner").Logger()

	p := &HistoryPruner{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		manager:   manager,
		retention: retention,
		logger:    &logger.Logger{Logger: &log},
	}

	if _, err := p.cron.AddFunc(schedule, p.prune); err != nil {
		return nil, fmt.Errorf("failed to schedule history pruning %q: %w", schedule, err)
	}

	return p, nil
}

func (p *HistoryPruner) prune() {
	removed := p.manager.PruneHistory(p.retention)
	p.logger.Debug().
		Int("removed", removed).
		Str("action", "prune_run").
		Msg("History prune finished")
}

// Start begins the pruning schedule
func (p *HistoryPruner) Start() {
	p.logger.Info().
		Dur("retention", p.retention).
		Str("action", "start").
		Msg("Starting history pruner")
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish
func (p *HistoryPruner) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.logger.Info().
		Str("action", "stopped").
		Msg("History pruner stopped")
}
