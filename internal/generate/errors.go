package generate

import (
	"fmt"
	"strings"
)

// ResolutionError reports a generator or object class name that is neither a
// builtin nor registered under a loaded module. It is a configuration error.
type ResolutionError struct {
	Kind string // "row generator", "missingness generator", "story generator", "object class"
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// ArityError reports a generator whose return value does not match the
// number of columns it is assigned to. Surfaced at first use.
type ArityError struct {
	Table     string
	Generator string
	Want      int
	Got       int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("table %s: generator %q returned %d value(s) for %d assigned column(s)",
		e.Table, e.Generator, e.Got, e.Want)
}

// ExhaustedError reports a uniqueness scope whose retry budget ran out
// without a non-colliding candidate. Fatal for the table: emitting a
// duplicate would violate the destination schema.
type ExhaustedError struct {
	Table   string
	Columns []string
	Tries   int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("table %s: could not generate a unique value for (%s) after %d tries",
		e.Table, strings.Join(e.Columns, ", "), e.Tries)
}
