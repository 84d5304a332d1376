package cmd

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/fixreg/internal/audit"
	"github.com/papapumpkin/fixreg/internal/fixture"
	"github.com/papapumpkin/fixreg/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered fixtures in manifest order",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().Bool("derived", false, "only list derived fixtures")
	listCmd.Flags().Bool("topo", false, "list sources before the fixtures derived from them")
	listCmd.Flags().Bool("tree", false, "show derivations as a tree")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	derivedOnly, _ := cmd.Flags().GetBool("derived")
	topo, _ := cmd.Flags().GetBool("topo")
	tree, _ := cmd.Flags().GetBool("tree")
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
	recs := slices.Collect(cat.Registry.All())
	if tree {
		printer.DerivationTree(recs)
		return nil
	}
	if topo {
		order, err := cat.Registry.Order()
		if err != nil {
			return err
		}
		pos := make(map[string]int, len(order))
		for i, name := range order {
			pos[name] = i
		}
		slices.SortFunc(recs, func(a, b fixture.Record) int { return pos[a.Name] - pos[b.Name] })
	}
	if derivedOnly {
		recs = slices.DeleteFunc(recs, func(r fixture.Record) bool { return !r.IsDerived() })
	}
	printer.RecordList(recs)
	return nil
}
