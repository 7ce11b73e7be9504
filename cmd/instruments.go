package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newInstrumentsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "List the known instruments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			tbl, err := loadTable(cfg)
			if err != nil {
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("NAME", "TRANSPOSITION", "CLEF", "RANGE (Hz)")
			for _, name := range tbl.Names() {
				p, err := tbl.Lookup(name)
				if err != nil {
					return err
				}
				t.Row(p.Name,
					fmt.Sprintf("%+d", p.Transposition),
					string(p.Clef),
					fmt.Sprintf("%.0f-%.0f", p.RangeMinHz, p.RangeMaxHz),
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}
