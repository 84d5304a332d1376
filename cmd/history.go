package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/fixreg/internal/history"
	"github.com/papapumpkin/fixreg/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded validation runs",
	Long: `Without arguments, lists the most recent validation runs, newest first.
With a run ID, prints the violations recorded for that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 10, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	printer := ui.NewWriter(cmd.OutOrStdout())

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	if s.opts.History == nil {
		return fmt.Errorf("history is disabled (history_db is empty)")
	}

	if len(args) == 1 {
		run, err := s.opts.History.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printer.HistoryRuns([]history.Run{run})
		printer.ValidateResult(run.Dir, run.FixtureCount, run.Violations)
		return nil
	}

	runs, err := s.opts.History.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	printer.HistoryRuns(runs)
	return nil
}
