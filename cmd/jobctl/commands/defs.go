package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iddaa-lens/jobrunner/internal/config"
	"github.com/iddaa-lens/jobrunner/pkg/jobdef"
)

func newDefsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "defs",
		Short: "List resolved job definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := jobdef.Load(cfg.Jobs.DefinitionsPath)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tJOB TYPE\tIMPLEMENTATION\tPARAMS")
			for _, d := range defs.Definitions() {
				params := make([]string, 0, len(d.Params))
				for _, k := range d.Params.Keys() {
					params = append(params, k+"="+d.Params[k])
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Category, d.JobType, d.ImplID, strings.Join(params, " "))
			}
			return w.Flush()
		},
	}
}
