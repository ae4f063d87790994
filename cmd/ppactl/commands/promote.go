package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ppactl/pkg/engine"
)

func newPromoteCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Copy published packages from the proposed PPA to the release PPA",
		Long: `Copy every published whitelisted package in the proposed PPA, with its
binaries, to the same series and pocket of the release PPA.

Copies of packages the release PPA already has, and copies into series
Launchpad no longer accepts uploads for, are skipped.`,
		Example: `  # Promote everything that is ready
  ppactl promote

  # Show what would be promoted
  ppactl promote --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			return a.runStep(cmd, dryRun, func(ctx context.Context, eng *engine.Engine) (int, error) {
				return eng.Promote(ctx)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log copies instead of submitting them")

	return cmd
}
