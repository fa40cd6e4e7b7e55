package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/database"
	"github.com/dbsmedya/synthgen/internal/logger"
	"github.com/dbsmedya/synthgen/internal/schema"
	"github.com/dbsmedya/synthgen/internal/session"
	"github.com/dbsmedya/synthgen/internal/sink"
)

var (
	generatePasses int
	generateDryRun bool
	generateVocab  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic rows into the destination database",
	Long: `Generate runs a full session: collects source statistics, orders
tables by foreign key dependencies, then produces rows pass by pass.

Each pass generates num_rows_per_pass rows per table in dependency order,
then runs the configured story generators. Vocabulary tables are loaded
from per-table YAML files during the first pass.

Example:
  synthgen generate --config synthgen.yaml --schema schema.yaml --passes 10`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&generatePasses, "passes", 0,
		"Override number of generation passes")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false,
		"Generate into an in-memory buffer and print row counts instead of inserting")
	generateCmd.Flags().StringVar(&generateVocab, "vocab-dir", ".",
		"Directory holding per-table vocabulary YAML files")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, sch, log, err := loadAll()
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := session.Options{
		PrivateReader: privateReader(),
		VocabDir:      generateVocab,
	}

	needsSource := len(cfg.SrcStats) > 0
	if needsSource || !generateDryRun {
		dbManager := database.NewManager(cfg)
		if generateDryRun {
			if err := dbManager.ConnectSource(ctx); err != nil {
				return err
			}
		} else if err := dbManager.Connect(ctx); err != nil {
			return err
		}
		defer dbManager.Close()
		opts.Databases = dbManager
		if !generateDryRun {
			opts.Sink = sink.NewSQLSink(dbManager.Destination, dbManager.DestinationDialect(), log)
		}
	}

	sess, err := session.New(cfg, sch, Registry, log, opts)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - stopping after current row...")
		cancel()
	}()

	if err := sess.LoadStats(ctx); err != nil {
		return fmt.Errorf("statistics collection failed: %w", err)
	}

	result, err := sess.Generate(ctx)
	if err != nil {
		if ctx.Err() == context.Canceled {
			log.Warn("Generation cancelled by user")
			return nil
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	// Display results
	fmt.Printf("\n=== Generation Complete ===\n")
	fmt.Printf("Passes: %d\n", result.Passes)
	fmt.Printf("Duration: %s\n", result.Duration)
	fmt.Printf("Story Rows: %d\n", result.StoryRows)
	printCounts("Rows Generated", result.RowCounts)
	printCounts("Vocabulary Rows Loaded", result.Vocabulary)

	return nil
}

func printCounts(title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	fmt.Printf("%s:\n", title)
	for _, table := range tables {
		fmt.Printf("  %s: %d\n", table, counts[table])
	}
}

// loadAll loads and validates configuration and schema, applies CLI
// overrides and builds the logger.
func loadAll() (*config.Config, *schema.Schema, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.NumPasses)

	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sch, err := schema.Load(GetSchemaFile())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load schema: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, sch, log, nil
}
