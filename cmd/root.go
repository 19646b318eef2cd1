package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crop-explorer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crop-explorer",
	Short: "Explore FAOSTAT-style crop statistics by country, item and year",
	Long: `Loads a crop statistics dataset and a world map geometry into memory.

  summary   print catalog statistics for the loaded sources
  view      print one projection (top, scatter, series, breakdown, share,
            world, map, profile) of a selection as JSON
  explore   run an interactive session that reads commands on stdin and
            writes a JSON snapshot after each one`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
