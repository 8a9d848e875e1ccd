// Command matchctl matches product files from the command line.
//
//	matchctl columns
//	matchctl normalize 5449000000996 "0 12345 67890 5"
//	matchctl run --input products.csv --map Description=PRODUCT_DESCRIPTION_TEXT --map EAN=GTIN_CODE
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "matchctl",
	Short:         "Match product rows against the reference catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger.Setup(cfg.Logging.Level, "text")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(columnsCmd, normalizeCmd, runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
