package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the input roles and the output columns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INPUT ROLE\tLABEL\tSEARCHES")
		for _, f := range product.InputFields() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", f, f.Label(), f.SearchField())
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "#\tOUTPUT COLUMN\tTYPE")
		for i, c := range matcher.OutputColumns() {
			fmt.Fprintf(w, "%d\t%s\t%s\n", i, c.Name, c.Type)
		}
		return w.Flush()
	},
}
