package generate

import (
	"fmt"
)

// missingness is one compiled missingness generator bound to its declared
// columns. Applied after row generation and uniqueness retry, so nulled
// values never count toward uniqueness tracking.
type missingness struct {
	name    string
	fn      MissingnessFunc
	kwargs  map[string]interface{}
	columns []string
}

// apply runs the generator and nulls the columns it selected. Selecting a
// column outside the declared set is a generator bug and fails the row.
func (m *missingness) apply(ctx *Context, row map[string]interface{}) error {
	kwargs, err := ResolveKwargs(ctx, m.kwargs)
	if err != nil {
		return fmt.Errorf("missingness generator %q: %w", m.name, err)
	}
	selected, err := m.fn(ctx, kwargs, m.columns)
	if err != nil {
		return fmt.Errorf("missingness generator %q: %w", m.name, err)
	}
	declared := make(map[string]struct{}, len(m.columns))
	for _, col := range m.columns {
		declared[col] = struct{}{}
	}
	for _, col := range selected {
		if _, ok := declared[col]; !ok {
			return fmt.Errorf("missingness generator %q selected undeclared column %q", m.name, col)
		}
		row[col] = nil
	}
	return nil
}

// MissingAlways nulls every declared column on every row.
func MissingAlways(ctx *Context, kwargs map[string]interface{}, columns []string) ([]string, error) {
	return columns, nil
}

// MissingWithProbability nulls the declared columns with the configured
// probability. By default one draw decides all columns together; with
// independent: true each column gets its own draw.
func MissingWithProbability(ctx *Context, kwargs map[string]interface{}, columns []string) ([]string, error) {
	raw, ok := kwargs["probability"]
	if !ok {
		return nil, fmt.Errorf("missing required kwarg %q", "probability")
	}
	prob := ToFloat64(raw)
	if prob < 0 || prob > 1 {
		return nil, fmt.Errorf("probability %v outside [0, 1]", prob)
	}

	independent := ToBool(kwargs["independent"])

	if !independent {
		if ctx.Rand.Float64() < prob {
			return columns, nil
		}
		return nil, nil
	}

	var selected []string
	for _, col := range columns {
		if ctx.Rand.Float64() < prob {
			selected = append(selected, col)
		}
	}
	return selected, nil
}
