package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ppactl/pkg/engine"
)

func newCopyToSeriesCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "copy-to-series",
		Short: "Copy proposed packages to every supported series",
		Long: `Copy whitelisted packages from the current series to every other
supported Ubuntu series within the proposed PPA.

This command:
  - Detects the current series (lsb_release) and the supported ones (ubuntu-distro-info)
  - Finds the published version of each whitelisted package for the current series
  - Queues a copy for every series where that version is missing
  - Defers packages whose builds have not finished yet
  - Submits the queued copies in one request per series

Series that already have the package are reported only when something is off,
so a converged archive produces no output.`,
		Example: `  # Copy pending packages
  ppactl copy-to-series

  # Show what would be copied
  ppactl copy-to-series --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return a.runStep(cmd, dryRun, func(ctx context.Context, eng *engine.Engine) (int, error) {
				return eng.CopyToSeries(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log copies instead of submitting them")

	return cmd
}
