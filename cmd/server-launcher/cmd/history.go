package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/domain/launch"
	"github.com/oshokin/server-launcher/internal/repository/history"
	"github.com/oshokin/server-launcher/internal/service/common"
)

// errHistoryDisabled is returned when the settings turn the run history off.
var errHistoryDisabled = errors.New("run history is disabled in the settings")

var (
	// historyLimit is the number of runs to print.
	historyLimit int

	// historyCmd prints the most recent launcher runs.
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recent launcher runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showHistory(cmd.Context(), cmd.OutOrStdout(), settingsPath, historyLimit)
		},
	}
)

// showHistory prints up to limit recent runs. A missing database is reported as an empty
// history and is not created.
func showHistory(ctx context.Context, out io.Writer, path string, limit int) error {
	settings, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !settings.History.IsEnabled() {
		return errHistoryDisabled
	}

	if !common.FileExists(settings.History.Path) {
		return printRuns(out, nil)
	}

	repo, err := history.Open(settings.History.Path)
	if err != nil {
		return err
	}

	defer func() {
		_ = repo.Close()
	}()

	runs, err := repo.Recent(ctx, limit)
	if err != nil {
		return err
	}

	return printRuns(out, runs)
}

// printRuns writes runs as an aligned table.
func printRuns(out io.Writer, runs []*launch.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")

		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd // Column padding.
	_, _ = fmt.Fprintln(w, "STARTED\tDURATION\tOUTCOME\tEXIT\tRUNTIME\tARTIFACT\tUSER\tRUN ID\tMESSAGE")

	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}

		user := "-"
		if run.Actor != nil {
			user = run.Actor.Username + "@" + run.Actor.Hostname
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			run.Outcome,
			run.ExitCode,
			yesNo(run.RuntimeInstalled, "installed"),
			yesNo(run.ArtifactFetched, "fetched"),
			user,
			run.ID,
			run.Message,
		)
	}

	return w.Flush()
}

func yesNo(flag bool, yes string) string {
	if flag {
		return yes
	}

	return "-"
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultRecentLimit, "number of runs to show")

	rootCmd.AddCommand(historyCmd)
}
