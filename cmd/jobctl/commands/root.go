package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iddaa-lens/jobrunner/internal/config"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
)

const cliExecutable = "jobctl"

// NewCommand constructs the top-level jobctl command
func NewCommand() *cobra.Command {
	var (
		definitions string
		verbose     bool
	)

	cfg := config.Load()

	cmd := &cobra.Command{
		Use:           cliExecutable,
		Short:         "Run and inspect single-flight jobs in-process",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if definitions != "" {
				cfg.Jobs.DefinitionsPath = definitions
			}
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&definitions, "definitions", "d", "", "Path to the job definitions file (default $JOB_DEFINITIONS_PATH)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRunCommand(cfg))
	cmd.AddCommand(newDefsCommand(cfg))

	return cmd
}

func newLogger() *logger.Logger {
	return logger.New(cliExecutable)
}
