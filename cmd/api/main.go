package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iddaa-lens/jobrunner/internal/bootstrap"
	"github.com/iddaa-lens/jobrunner/internal/config"
	"github.com/iddaa-lens/jobrunner/pkg/jobs"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
	"github.com/iddaa-lens/jobrunner/pkg/server"
)

func main() {
	// Setup structured logging
	logger.SetupLogger()
	log := logger.New("jobrunner-api")

	cfg := config.Load()

	rt, err := bootstrap.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "runtime_init_failed").
			Msg("Failed to initialise job runtime")
	}
	defer rt.Close()

	if cfg.Jobs.HistoryRetention > 0 {
		pruner, err := jobs.NewHistoryPruner(rt.Manager, cfg.Jobs.HistoryRetention, cfg.Jobs.PruneSchedule)
		if err != nil {
			log.Fatal().
				Err(err).
				Str("action", "pruner_init_failed").
				Msg("Failed to create history pruner")
		}
		pruner.Start()
		defer pruner.Stop()
	}

	srv := server.New(cfg, log, rt.Manager, rt.PoolStats())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().
			Str("signal", sig.String()).
			Str("action", "shutdown_signal").
			Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().
				Err(err).
				Str("action", "server_failed").
				Msg("Server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Str("action", "server_shutdown_failed").Msg("Server shutdown failed")
	}
	if err := rt.Manager.Shutdown(ctx); err != nil {
		log.Error().Err(err).Str("action", "manager_shutdown_failed").Msg("Job manager shutdown failed")
	}
}
