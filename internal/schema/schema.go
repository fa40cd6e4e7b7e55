// Package schema models the destination database schema consumed by the
// generation engine: column nullability, foreign keys and unique constraints.
package schema

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column describes one column of a destination table.
type Column struct {
	Name        string   `yaml:"-"`
	Type        string   `yaml:"type"`
	Nullable    bool     `yaml:"nullable"`
	PrimaryKey  bool     `yaml:"primary_key"`
	ForeignKeys []string `yaml:"foreign_keys"` // "table.column" references
}

// Table describes one destination table.
type Table struct {
	Name    string             `yaml:"-"`
	Columns map[string]*Column `yaml:"columns"`
	Unique  [][]string         `yaml:"unique"`
}

// Schema is the full destination schema.
type Schema struct {
	Tables map[string]*Table `yaml:"tables"`
}

// Load reads a schema document from the given YAML file path.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a schema document from a reader.
func Decode(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	// Backfill names and check that FK references resolve.
	for tname, table := range s.Tables {
		table.Name = tname
		for cname, col := range table.Columns {
			col.Name = cname
			for _, ref := range col.ForeignKeys {
				refTable, _, err := SplitRef(ref)
				if err != nil {
					return nil, fmt.Errorf("table %s column %s: %w", tname, cname, err)
				}
				if _, ok := s.Tables[refTable]; !ok {
					return nil, fmt.Errorf("table %s column %s references unknown table %q", tname, cname, refTable)
				}
			}
		}
		for i, cols := range table.Unique {
			for _, c := range cols {
				if _, ok := table.Columns[c]; !ok {
					return nil, fmt.Errorf("table %s unique[%d] lists unknown column %q", tname, i, c)
				}
			}
		}
	}

	return &s, nil
}

// SplitRef splits a "table.column" foreign key reference.
func SplitRef(ref string) (table, column string, err error) {
	idx := strings.LastIndex(ref, ".")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", fmt.Errorf("malformed foreign key reference %q (want table.column)", ref)
	}
	return ref[:idx], ref[idx+1:], nil
}

// Table returns the table with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// TableNames returns all table names in sorted order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column returns the named column of the table.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// ColumnNames returns all column names of the table in sorted order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NullableColumns returns the set of nullable column names.
func (t *Table) NullableColumns() map[string]bool {
	nullable := make(map[string]bool)
	for name, col := range t.Columns {
		if col.Nullable {
			nullable[name] = true
		}
	}
	return nullable
}

// RequiredColumns returns the columns that must be covered by row
// generators: everything that is neither nullable nor a single-column
// integer primary key (those are presumed auto-populated).
func (t *Table) RequiredColumns() []string {
	autoPK := t.autoPrimaryKey()
	var required []string
	for _, name := range t.ColumnNames() {
		col := t.Columns[name]
		if col.Nullable {
			continue
		}
		if name == autoPK {
			continue
		}
		required = append(required, name)
	}
	return required
}

// autoPrimaryKey returns the name of the single integer primary key column,
// or empty string when the primary key is compound or non-integer.
func (t *Table) autoPrimaryKey() string {
	var pks []string
	for name, col := range t.Columns {
		if col.PrimaryKey {
			pks = append(pks, name)
		}
	}
	if len(pks) != 1 {
		return ""
	}
	typ := strings.ToLower(t.Columns[pks[0]].Type)
	if strings.Contains(typ, "int") || typ == "serial" || typ == "bigserial" {
		return pks[0]
	}
	return ""
}

// PrimaryKeyColumns returns the primary key column names in sorted order.
func (t *Table) PrimaryKeyColumns() []string {
	var pks []string
	for _, name := range t.ColumnNames() {
		if t.Columns[name].PrimaryKey {
			pks = append(pks, name)
		}
	}
	return pks
}

// ReferencedTables returns the distinct names of tables this table
// references through foreign keys, excluding self-references.
func (t *Table) ReferencedTables() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, name := range t.ColumnNames() {
		for _, ref := range t.Columns[name].ForeignKeys {
			refTable, _, err := SplitRef(ref)
			if err != nil || refTable == t.Name || seen[refTable] {
				continue
			}
			seen[refTable] = true
			refs = append(refs, refTable)
		}
	}
	sort.Strings(refs)
	return refs
}

// UniqueScopes returns the unique constraints of the table, including a
// compound primary key when present (a single-column auto PK is handled by
// the insertion layer, not the retrier).
func (t *Table) UniqueScopes() [][]string {
	scopes := make([][]string, 0, len(t.Unique))
	scopes = append(scopes, t.Unique...)
	pks := t.PrimaryKeyColumns()
	if len(pks) > 1 {
		scopes = append(scopes, pks)
	}
	return scopes
}
