package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ppactl/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit   int
		runID   string
		pkgName string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs and their events",
		Long: `Show the run history recorded in history.path.

Without --run, lists recent runs newest first. With --run, lists the events
of that run: queued and submitted copies, ignored rejections, promotions,
build failures and timeouts.`,
		Example: `  # Recent runs
  ppactl history

  # Events of one run
  ppactl history --run 2b6c1c7e-8d1f-4f4e-9a55-0e0b6f1f3c2a

  # Everything that happened to one package
  ppactl history --package kolibri-server --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return errors.New("run history is disabled: set history.path in the config file")
			}

			store, err := openStore(cmd.Context(), cfg.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if runID == "" && pkgName == "" {
				runs, err := store.ListRuns(cmd.Context(), limit, 0)
				if err != nil {
					return err
				}
				return printRuns(out, runs)
			}

			events, err := store.GetEvents(cmd.Context(), stores.EventFilter{RunID: runID, Package: pkgName}, limit, 0)
			if err != nil {
				return err
			}
			return printEvents(out, events)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	cmd.Flags().StringVar(&runID, "run", "", "show events of this run")
	cmd.Flags().StringVarP(&pkgName, "package", "p", "", "show events for this package")

	return cmd
}

func printRuns(w io.Writer, runs []*stores.Run) error {
	if jsonOutput {
		return writeJSON(w, runs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCOMMAND\tSTATUS\tEXIT\tSTARTED\tDURATION")
	for _, r := range runs {
		exit := "-"
		if r.ExitCode != nil {
			exit = fmt.Sprint(*r.ExitCode)
		}
		command := r.Command
		if r.DryRun {
			command += " (dry run)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, command, r.Status, exit,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second))
	}
	return tw.Flush()
}

func printEvents(w io.Writer, events []*stores.Event) error {
	if jsonOutput {
		return writeJSON(w, events)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tLEVEL\tTYPE\tPACKAGE\tMESSAGE")
	for _, e := range events {
		pkg := e.Package
		if e.Version != "" {
			pkg += " " + e.Version
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Level, e.Type, pkg, e.Message)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
