package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iddaa-lens/jobrunner/internal/bootstrap"
	"github.com/iddaa-lens/jobrunner/internal/config"
	"github.com/iddaa-lens/jobrunner/pkg/jobs"
)

func newRunCommand(cfg *config.Config) *cobra.Command {
	var (
		descriptor string
		poll       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <category> <job-type>",
		Short: "Run one job and follow it until it finishes; Ctrl-C cancels it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rt, err := bootstrap.New(ctx, cfg, newLogger())
			if err != nil {
				return err
			}
			defer rt.Close()
			defer func() { _ = rt.Manager.Shutdown(context.Background()) }()

			id, err := rt.Manager.Run(ctx, args[0], args[1], []byte(descriptor))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %d started\n", id)

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(interrupt)

			return follow(ctx, cmd, rt.Manager, id, poll, interrupt)
		},
	}

	cmd.Flags().StringVar(&descriptor, "descriptor", "{}", "Opaque descriptor payload passed to the job")
	cmd.Flags().DurationVar(&poll, "poll", time.Second, "Status polling interval")

	return cmd
}

// follow prints status changes until the job completes or an interrupt
// arrives, in which case it cancels the job and reports the result code
func follow(ctx context.Context, cmd *cobra.Command, manager *jobs.Manager, id int64, poll time.Duration, interrupt <-chan os.Signal) error {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var last jobs.Status
	report := func() (jobs.Status, error) {
		s, err := manager.Status(id)
		if err != nil {
			return s, err
		}
		if s.Percent != last.Percent || s.Message != last.Message {
			fmt.Fprintf(out, "[%3d%%] %s\n", s.Percent, s.Message)
			last = s
		}
		return s, nil
	}

	for {
		select {
		case <-ticker.C:
		case <-interrupt:
			fmt.Fprintln(out, "cancelling...")
			result, err := manager.Cancel(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cancel result: %d (%s)\n", int(result), result)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

		s, err := report()
		if err != nil {
			return err
		}
		if s.Completed {
			fmt.Fprintf(out, "job %d finished: %s\n", id, s.State)
			if s.State == jobs.StateCompletedAborted {
				return fmt.Errorf("job %d aborted: %s", id, s.Message)
			}
			return nil
		}
	}
}
