package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/synthgen/internal/generate"
	"github.com/dbsmedya/synthgen/internal/stats"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile    string
	schemaFile string
	logLevel   string
	logFormat  string
)

// Registry holds the generator registry commands build sessions from.
// Hosts embedding the CLI register custom row and story generators here,
// under the module-qualified names their configuration declares, before
// calling Execute.
var Registry = generate.NewRegistry()

// PrivateReaderFactory supplies the differential-privacy engine for
// dp-query stages. Left nil, configurations with dp-query blocks fail.
var PrivateReaderFactory func() stats.PrivateReader

var rootCmd = &cobra.Command{
	Use:   "synthgen",
	Short: "Synthetic relational data generator",
	Long: `A CLI tool for generating statistically faithful synthetic data across
related database tables.

Features:
  - Source statistics collection, optionally under differential privacy
  - Automatic table ordering from foreign key dependencies
  - Per-column row generators and cross-table story generators
  - Uniqueness constraints with bounded retry
  - Controlled missingness on nullable columns`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Best effort: a missing .env is not an error.
		_ = godotenv.Load()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config and schema file flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "synthgen.yaml",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&schemaFile, "schema", "s", "schema.yaml",
		"Path to destination schema file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetSchemaFile returns the schema file path
func GetSchemaFile() string {
	return schemaFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	NumPasses int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		NumPasses: generatePasses,
	}
}

func privateReader() stats.PrivateReader {
	if PrivateReaderFactory == nil {
		return nil
	}
	return PrivateReaderFactory()
}
