package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bullrushinvestments/carbonclicks"
)

func newFormsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the available forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := carbonclicks.LoadForms(a.cfg.FormsDir)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tBOUNDARY\tFIELDS")
			for _, def := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", def.ID, def.Title, def.Boundary.Kind, len(def.Fields))
			}
			return w.Flush()
		},
	}
}
