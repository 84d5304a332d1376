package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/fixreg/internal/audit"
	"github.com/papapumpkin/fixreg/internal/fixture"
	"github.com/papapumpkin/fixreg/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a fixture's provenance, lineage, and dependents",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	printer := ui.NewWriter(cmd.OutOrStdout())

	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.close()

	cat, err := audit.Load(s.opts)
	if err != nil {
		return err
	}
	rec, err := cat.Registry.Get(args[0])
	if err != nil {
		return err
	}

	// A broken chain is reported but still shows the lineage walked so far.
	lineage, err := cat.Registry.Lineage(rec.Name)
	switch {
	case errors.Is(err, fixture.ErrDanglingReference), errors.Is(err, fixture.ErrCyclicDerivation):
		printer.Info(err.Error())
	case err != nil:
		return err
	}
	dependents, err := cat.Registry.Dependents(rec.Name)
	if err != nil {
		return err
	}
	printer.RecordDetail(rec, lineage, dependents)
	return nil
}
