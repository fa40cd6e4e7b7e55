package generate

import (
	"fmt"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/logger"
	"github.com/dbsmedya/synthgen/internal/schema"
)

// compiledSpec is one row generator, resolved and bound to its columns.
// scopes holds the uniqueness constraints whose columns are all assigned by
// this spec, so collisions can be retried locally without regenerating the
// rest of the row.
type compiledSpec struct {
	name    string
	fn      GeneratorFunc
	args    []interface{}
	kwargs  map[string]interface{}
	columns []string
	scopes  []*Scope
}

// Pipeline generates rows for one table: the configured row generators in
// declaration order, uniqueness retry, then missingness. A pipeline lives
// for the whole session so its uniqueness scopes span passes.
type Pipeline struct {
	table     *schema.Table
	specs     []compiledSpec
	missing   []*missingness
	rowScopes []*Scope
	rowTries  int
	log       *logger.Logger
}

// NewPipeline compiles the table's generator configuration. Resolution
// failures, unknown columns, overlapping assignments and uncovered required
// columns are all rejected here, before any row is generated.
func NewPipeline(table *schema.Table, tcfg config.TableConfig, reg *Registry, defaultMaxTries int, log *logger.Logger) (*Pipeline, error) {
	p := &Pipeline{
		table:    table,
		rowTries: defaultMaxTries,
		log:      log.WithTable(table.Name),
	}

	assigned := make(map[string]string) // column -> generator name
	for _, spec := range tcfg.RowGenerators {
		fn, err := reg.ResolveRowGenerator(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table.Name, err)
		}
		columns := spec.Columns()
		if len(columns) == 0 {
			return nil, fmt.Errorf("table %s: generator %q assigns no columns", table.Name, spec.Name)
		}
		for _, col := range columns {
			if _, ok := table.Column(col); !ok {
				return nil, fmt.Errorf("table %s: generator %q assigns unknown column %q", table.Name, spec.Name, col)
			}
			if prev, dup := assigned[col]; dup {
				return nil, fmt.Errorf("table %s: column %q assigned by both %q and %q", table.Name, col, prev, spec.Name)
			}
			assigned[col] = spec.Name
		}
		p.specs = append(p.specs, compiledSpec{
			name:    spec.Name,
			fn:      fn,
			args:    spec.Args,
			kwargs:  spec.Kwargs,
			columns: columns,
		})
	}

	for _, col := range table.RequiredColumns() {
		if _, ok := assigned[col]; !ok {
			return nil, fmt.Errorf("table %s: required column %q has no generator", table.Name, col)
		}
	}

	nullable := table.NullableColumns()
	for _, spec := range tcfg.MissingnessGenerators {
		fn, err := reg.ResolveMissingnessGenerator(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table.Name, err)
		}
		for _, col := range spec.Columns {
			if _, ok := table.Column(col); !ok {
				return nil, fmt.Errorf("table %s: missingness generator %q targets unknown column %q", table.Name, spec.Name, col)
			}
			if !nullable[col] {
				return nil, fmt.Errorf("table %s: missingness generator %q targets non-nullable column %q", table.Name, spec.Name, col)
			}
		}
		p.missing = append(p.missing, &missingness{
			name:    spec.Name,
			fn:      fn,
			kwargs:  spec.Kwargs,
			columns: spec.Columns,
		})
	}

	if err := p.compileScopes(tcfg, defaultMaxTries); err != nil {
		return nil, err
	}
	return p, nil
}

// compileScopes builds one Scope per uniqueness constraint, from the schema
// document plus any unique_columns supplements, and attaches each to the
// single spec covering all its columns when there is one.
func (p *Pipeline) compileScopes(tcfg config.TableConfig, defaultMaxTries int) error {
	type constraint struct {
		columns  []string
		maxTries int
	}
	var constraints []constraint
	for _, cols := range p.table.UniqueScopes() {
		constraints = append(constraints, constraint{columns: cols, maxTries: defaultMaxTries})
	}
	for _, uc := range tcfg.UniqueColumns {
		tries := defaultMaxTries
		if uc.MaxTries > 0 {
			tries = uc.MaxTries
		}
		for _, col := range uc.Columns {
			if _, ok := p.table.Column(col); !ok {
				return fmt.Errorf("table %s: unique_columns lists unknown column %q", p.table.Name, col)
			}
		}
		constraints = append(constraints, constraint{columns: uc.Columns, maxTries: tries})
	}

	for _, c := range constraints {
		scope := NewScope(p.table.Name, c.columns, c.maxTries)
		if owner := p.coveringSpec(c.columns); owner != nil {
			owner.scopes = append(owner.scopes, scope)
		} else {
			p.rowScopes = append(p.rowScopes, scope)
			if c.maxTries > p.rowTries {
				p.rowTries = c.maxTries
			}
		}
	}
	return nil
}

// coveringSpec returns the compiled spec assigning every one of the given
// columns, or nil when the columns are spread across specs (or unassigned,
// e.g. an auto primary key participating in a compound constraint).
func (p *Pipeline) coveringSpec(columns []string) *compiledSpec {
	for i := range p.specs {
		spec := &p.specs[i]
		covered := 0
		for _, col := range columns {
			for _, assigned := range spec.columns {
				if col == assigned {
					covered++
					break
				}
			}
		}
		if covered == len(columns) {
			return spec
		}
	}
	return nil
}

// Table returns the name of the table this pipeline generates for.
func (p *Pipeline) Table() string {
	return p.table.Name
}

// GenerateRow produces one row. The returned map holds only generated
// columns; columns without a generator are left to the destination's
// defaults. Exhausting a uniqueness retry budget is fatal.
func (p *Pipeline) GenerateRow(ctx *Context) (map[string]interface{}, error) {
	tries := 1
	if len(p.rowScopes) > 0 {
		tries = p.rowTries
	}

	var row map[string]interface{}
attempts:
	for attempt := 0; attempt < tries; attempt++ {
		var err error
		row, err = p.generateOnce(ctx, true)
		if err != nil {
			return nil, err
		}
		for _, scope := range p.rowScopes {
			if scope.Has(row) {
				p.log.Debugw("uniqueness collision, regenerating row",
					"columns", scope.Columns, "attempt", attempt+1)
				continue attempts
			}
		}
		for _, scope := range p.rowScopes {
			scope.Claim(row)
		}
		for _, m := range p.missing {
			ctx.Row = row
			if err := m.apply(ctx, row); err != nil {
				return nil, fmt.Errorf("table %s: %w", p.table.Name, err)
			}
		}
		return row, nil
	}
	return nil, p.rowScopes[0].Exhausted()
}

// GenerateStoryRow builds the base row for a story: the pipeline fills
// defaults without recording any uniqueness claims, the story's values
// overlay them, and only the final values are claimed in every scope. A
// collision at that point is fatal; story rows are not retried.
func (p *Pipeline) GenerateStoryRow(ctx *Context, values map[string]interface{}) (map[string]interface{}, error) {
	row, err := p.generateOnce(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, m := range p.missing {
		ctx.Row = row
		if err := m.apply(ctx, row); err != nil {
			return nil, fmt.Errorf("table %s: %w", p.table.Name, err)
		}
	}
	for col, v := range values {
		row[col] = v
	}
	for _, scope := range p.allScopes() {
		if !scope.Claim(row) {
			return nil, fmt.Errorf("table %s: story row collides on unique columns %v", p.table.Name, scope.Columns)
		}
	}
	return row, nil
}

// allScopes returns every uniqueness scope of the table, spec-attached and
// row-level alike.
func (p *Pipeline) allScopes() []*Scope {
	var all []*Scope
	for i := range p.specs {
		all = append(all, p.specs[i].scopes...)
	}
	return append(all, p.rowScopes...)
}

// generateOnce runs every spec in declaration order into a fresh row,
// retrying individual specs whose local uniqueness scopes collide. With
// claim false the scopes are left untouched; the caller claims the row's
// final values itself.
func (p *Pipeline) generateOnce(ctx *Context, claim bool) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(p.table.Columns))
	ctx.Row = row
	for i := range p.specs {
		spec := &p.specs[i]
		if err := p.runSpec(ctx, spec, row, claim); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (p *Pipeline) runSpec(ctx *Context, spec *compiledSpec, row map[string]interface{}, claim bool) error {
	tries := 1
	if claim {
		for _, scope := range spec.scopes {
			if scope.MaxTries > tries {
				tries = scope.MaxTries
			}
		}
	}

attempts:
	for attempt := 0; attempt < tries; attempt++ {
		args, err := ResolveArgs(ctx, spec.args)
		if err != nil {
			return fmt.Errorf("table %s: generator %q: %w", p.table.Name, spec.name, err)
		}
		kwargs, err := ResolveKwargs(ctx, spec.kwargs)
		if err != nil {
			return fmt.Errorf("table %s: generator %q: %w", p.table.Name, spec.name, err)
		}
		value, err := spec.fn(ctx, args, kwargs)
		if err != nil {
			return fmt.Errorf("table %s: generator %q: %w", p.table.Name, spec.name, err)
		}
		if err := p.assign(spec, row, value); err != nil {
			return err
		}
		if !claim {
			return nil
		}
		for _, scope := range spec.scopes {
			if !scope.Claim(row) {
				p.log.Debugw("uniqueness collision, regenerating value",
					"generator", spec.name, "columns", scope.Columns, "attempt", attempt+1)
				continue attempts
			}
		}
		return nil
	}
	return spec.scopes[0].Exhausted()
}

// assign writes the generator's return value into the row. A generator
// bound to several columns must return a tuple of matching length; element
// order follows the columns_assigned declaration.
func (p *Pipeline) assign(spec *compiledSpec, row map[string]interface{}, value interface{}) error {
	if len(spec.columns) == 1 {
		row[spec.columns[0]] = value
		return nil
	}
	tuple, ok := value.([]interface{})
	if !ok {
		return &ArityError{Table: p.table.Name, Generator: spec.name, Want: len(spec.columns), Got: 1}
	}
	if len(tuple) != len(spec.columns) {
		return &ArityError{Table: p.table.Name, Generator: spec.name, Want: len(spec.columns), Got: len(tuple)}
	}
	for i, col := range spec.columns {
		row[col] = tuple[i]
	}
	return nil
}
