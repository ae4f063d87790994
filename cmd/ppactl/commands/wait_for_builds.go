package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openfroyo/ppactl/pkg/config"
	"github.com/openfroyo/ppactl/pkg/engine"
)

func newWaitForBuildsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait-for-builds",
		Short: "Wait until a source package has been built",
		Long: `Poll a PPA until the given source package version appears and all of its
builds have finished.

Exits 0 once every build succeeded, and 1 if any build failed or the timeout
expires first. Failing builds are listed with their architecture, state and
build log link.`,
		Example: `  # Wait for a fresh upload in the proposed PPA
  ppactl wait-for-builds --package kolibri-server --version 0.16.0-0ubuntu1

  # Wait in the release PPA, polling every 30 seconds for up to an hour
  ppactl wait-for-builds --package kolibri-server --version 0.16.0-0ubuntu1 \
    --ppa kolibri --interval 30 --timeout 3600`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			opts, err := waitOptions(cmd.Flags(), a.cfg)
			if err != nil {
				return err
			}

			return a.runStep(cmd, false, func(ctx context.Context, eng *engine.Engine) (int, error) {
				return eng.WaitForBuilds(ctx, opts)
			})
		},
	}

	cmd.Flags().StringP("package", "p", "", "source package name")
	cmd.Flags().StringP("version", "V", "", "source package version")
	cmd.Flags().String("ppa", "", "PPA name under the configured owner (default: the proposed PPA)")
	cmd.Flags().Int("timeout", int(engine.DefaultWaitTimeout/time.Second), "max wait in seconds")
	cmd.Flags().Int("interval", int(engine.DefaultWaitInterval/time.Second), "polling interval in seconds")
	_ = cmd.MarkFlagRequired("package")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

// waitOptions builds the waiter options from parsed flags. Unset --timeout and
// --interval fall back to the wait section of cfg.
func waitOptions(flags *pflag.FlagSet, cfg *config.Config) (engine.WaitOptions, error) {
	opts := engine.WaitOptions{
		Archive:  cfg.ProposedRef(),
		Interval: cfg.Wait.Interval,
		Timeout:  cfg.Wait.Timeout,
	}

	var err error
	if opts.Package, err = flags.GetString("package"); err != nil {
		return opts, err
	}
	if opts.Version, err = flags.GetString("version"); err != nil {
		return opts, err
	}
	if ppa, _ := flags.GetString("ppa"); ppa != "" {
		opts.Archive = cfg.ArchiveRef(ppa)
	}

	for name, dst := range map[string]*time.Duration{"timeout": &opts.Timeout, "interval": &opts.Interval} {
		if !flags.Changed(name) {
			continue
		}
		secs, err := flags.GetInt(name)
		if err != nil {
			return opts, err
		}
		if secs <= 0 {
			return opts, fmt.Errorf("--%s must be a positive number of seconds, got %d", name, secs)
		}
		*dst = time.Duration(secs) * time.Second
	}

	return opts, nil
}
