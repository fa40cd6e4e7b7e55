package graph

import (
	"fmt"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/schema"
)

// Builder constructs a dependency graph from the destination schema and the
// per-table generation configuration.
type Builder struct {
	schema *schema.Schema
	cfg    *config.Config
}

// NewBuilder creates a new graph builder.
func NewBuilder(sch *schema.Schema, cfg *config.Config) *Builder {
	return &Builder{schema: sch, cfg: cfg}
}

// Build constructs the dependency graph. Every schema table becomes a node,
// ignored tables included: they stay structurally present so that foreign
// keys into them resolve, they just never receive rows. Edges run from the
// referenced table to the referencing table.
func (b *Builder) Build() (*Graph, error) {
	if b.schema == nil {
		return nil, fmt.Errorf("schema is nil")
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	for name := range b.cfg.Tables {
		if _, ok := b.schema.Table(name); !ok {
			return nil, fmt.Errorf("config references table %q which is not in the schema", name)
		}
	}

	g := NewGraph()

	for _, name := range b.schema.TableNames() {
		tc := b.cfg.GetTable(name)
		g.AddNode(name, &Node{
			Name:       name,
			Vocabulary: tc.VocabularyTable,
			Ignored:    tc.Ignore,
		})
	}

	for _, name := range b.schema.TableNames() {
		table, _ := b.schema.Table(name)
		for _, colName := range table.ColumnNames() {
			col, _ := table.Column(colName)
			for _, ref := range col.ForeignKeys {
				refTable, refColumn, err := schema.SplitRef(ref)
				if err != nil {
					return nil, fmt.Errorf("table %s column %s: %w", name, colName, err)
				}
				if refTable == name {
					// Self-references impose no cross-table ordering.
					continue
				}
				g.AddEdgeWithMeta(refTable, name, colName, refColumn)
			}
		}
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	return g, nil
}

// Build is a convenience function that builds and validates a graph in one call.
func Build(sch *schema.Schema, cfg *config.Config) (*Graph, error) {
	return NewBuilder(sch, cfg).Build()
}
