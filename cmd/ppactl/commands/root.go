package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string
	jsonOutput bool
	verbosity  int
	quiet      bool
	debug      bool

	// buildVersion is reported in traces and metrics.
	buildVersion = "dev"
)

// ExitError carries a non-zero exit code that is not a crash, such as a
// failed build or a wait timeout. It has already been logged.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "ppactl",
		Short: "ppactl - Launchpad PPA promotion tool",
		Long: `ppactl moves source packages through a staged pair of Launchpad PPAs.

Packages are uploaded once to the proposed PPA for the current Ubuntu series.
ppactl then:
  - copies them to every other supported series (copy-to-series)
  - waits for the build farm to finish (wait-for-builds)
  - promotes the built packages to the release PPA (promote)

Only whitelisted packages are ever copied. Copies that Launchpad rejects
because they already happened are ignored, so every step can be re-run.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "log and print in JSON format")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "more output; -vv logs at debug level with request timing")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level, including every HTTP request")

	rootCmd.AddCommand(newCopyToSeriesCommand())
	rootCmd.AddCommand(newPromoteCommand())
	rootCmd.AddCommand(newWaitForBuildsCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
