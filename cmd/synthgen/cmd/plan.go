package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/synthgen/internal/graph"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the table generation order",
	Long: `Plan analyzes the schema's foreign key dependencies and displays the
order tables will be generated in.

The plan shows:
  - Generation order (vocabulary tables first, then dependency order)
  - Rows generated per pass for each table
  - Ignored tables excluded from generation
  - Foreign key relationships driving the order

Example:
  synthgen plan --config synthgen.yaml --schema schema.yaml`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, sch, _, err := loadAll()
	if err != nil {
		return err
	}

	g, err := graph.Build(sch, cfg)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	order, err := g.GenerationOrder()
	if err != nil {
		return fmt.Errorf("failed to resolve generation order: %w", err)
	}

	printHeader("Generation Plan")

	fmt.Fprintln(outputWriter)
	printSection("Generation Order (dependencies first)")
	printPlanTable(outputWriter, order, g, func(name string) int {
		return cfg.GetTable(name).RowsPerPass()
	})

	ignored := cfg.IgnoredTableNames()
	if len(ignored) > 0 {
		fmt.Fprintln(outputWriter)
		printSection("Ignored Tables (structural only, no rows)")
		for _, name := range ignored {
			fmt.Fprintf(outputWriter, "  %s %s\n", color.Gray.Sprint("-"), name)
		}
	}

	fmt.Fprintln(outputWriter)
	printSection("Foreign Key Relationships")
	for _, edge := range g.AllEdges() {
		for _, meta := range g.GetEdgeMeta(edge.From, edge.To) {
			fmt.Fprintf(outputWriter, "  %s <- %s (FK: %s -> %s)\n",
				edge.From, edge.To, meta.ForeignKey, meta.ReferenceKey)
		}
	}

	fmt.Fprintln(outputWriter)
	printSection("Configuration")
	fmt.Fprintf(outputWriter, "  Passes:                %d\n", cfg.NumPasses)
	fmt.Fprintf(outputWriter, "  Max Unique Tries:      %d\n", cfg.MaxUniqueConstraintTries)
	fmt.Fprintf(outputWriter, "  Src-Stats Queries:     %d\n", len(cfg.SrcStats))
	fmt.Fprintf(outputWriter, "  Story Generators:      %d\n", len(cfg.StoryGenerators))

	return nil
}

// printPlanTable renders the ordered tables with runewidth-aligned columns.
func printPlanTable(w io.Writer, order []string, g *graph.Graph, rowsPerPass func(string) int) {
	nameWidth := runewidth.StringWidth("Table")
	for _, name := range order {
		if width := runewidth.StringWidth(name); width > nameWidth {
			nameWidth = width
		}
	}

	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		color.Bold.Sprint("  #"),
		color.Bold.Sprint(runewidth.FillRight("Table", nameWidth)),
		color.Bold.Sprint(runewidth.FillRight("Kind", 10)),
		color.Bold.Sprint("Rows/Pass"))

	for i, name := range order {
		node := g.GetNode(name)
		kind := "generated"
		rows := fmt.Sprintf("%d", rowsPerPass(name))
		if node != nil && node.Vocabulary {
			kind = color.Cyan.Sprint(runewidth.FillRight("vocabulary", 10))
			rows = "from file"
		} else {
			kind = runewidth.FillRight(kind, 10)
		}
		fmt.Fprintf(w, "  %3d  %s  %s  %s\n",
			i+1, runewidth.FillRight(name, nameWidth), kind, rows)
	}
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}
