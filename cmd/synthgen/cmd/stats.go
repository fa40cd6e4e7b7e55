package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/synthgen/internal/database"
	"github.com/dbsmedya/synthgen/internal/stats"
)

var statsOut string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Collect source statistics without generating rows",
	Long: `Stats runs the configured src-stats queries against the source
database and prints the results as YAML, preserving query declaration
order. Blocks with a dp-query store only the differentially private
output; the intermediate result set is discarded.

Example:
  synthgen stats --config synthgen.yaml --out src-stats.yaml`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsOut, "out", "",
		"Write collected statistics to this file instead of stdout")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, _, log, err := loadAll()
	if err != nil {
		return err
	}

	if len(cfg.SrcStats) == 0 {
		return fmt.Errorf("no src-stats queries configured")
	}

	ctx := context.Background()

	dbManager := database.NewManager(cfg)
	if err := dbManager.ConnectSource(ctx); err != nil {
		return err
	}
	defer dbManager.Close()

	collector, err := stats.NewCollector(dbManager.Source, privateReader(), log, cfg.UseAsyncio)
	if err != nil {
		return err
	}

	result, err := collector.Collect(ctx, cfg.SrcStats)
	if err != nil {
		return fmt.Errorf("statistics collection failed: %w", err)
	}

	if statsOut != "" {
		if err := result.ExportFile(statsOut); err != nil {
			return fmt.Errorf("failed to write statistics: %w", err)
		}
		fmt.Printf("Wrote %d query result(s) to %s\n", result.Len(), statsOut)
		return nil
	}
	return result.Export(os.Stdout)
}
