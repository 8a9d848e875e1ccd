package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize CODE...",
	Short: "Print the canonical form of each GTIN",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, raw := range args {
			gtin, ok := product.NormalizeGTIN(raw)
			if !ok {
				fmt.Fprintf(out, "%s\tinvalid\n", raw)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", raw, gtin)
		}
		return nil
	},
}
