package generate

import (
	"github.com/dbsmedya/synthgen/internal/expr"
)

// statsRoot is the binding name for the collected source statistics inside
// generator argument expressions.
const statsRoot = "SRC_STATS"

// binding resolves expression roots against the invocation context. A root
// resolves, in order, to SRC_STATS, a named singleton object, or a column
// already assigned on the row under construction. Any other string is a
// literal, not an error: configuration authors write plain string arguments
// far more often than lookups.
//
// The precedence means a bound name shadows the literal spelling: a string
// kwarg equal to an object name resolves to the object, and one equal to an
// already-assigned column resolves to that column's value (objects win over
// columns on a name clash). Builtins that take identifier-valued kwargs,
// like column_value's "table" and "column", read them after resolution, so
// a generated column sharing the identifier's name changes what they see.
// Pick object and column names that do not collide with literal arguments,
// or bind the lookup explicitly through a differently named object.
func (c *Context) binding() expr.Binding {
	return expr.BindingFunc(func(root string) (interface{}, bool) {
		if root == statsRoot {
			if c.Stats == nil {
				return nil, false
			}
			return c.Stats, true
		}
		if obj, ok := c.Objects[root]; ok {
			return obj, true
		}
		if c.Row != nil {
			if v, ok := c.Row[root]; ok {
				return v, true
			}
		}
		return nil, false
	})
}

// resolveValue evaluates a single argument value. Strings shaped like lookup
// expressions whose root is bound are replaced by the looked-up value;
// everything else passes through unchanged. Lists and maps are resolved
// element-wise.
func resolveValue(ctx *Context, v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case string:
		ref, ok := expr.Parse(tv)
		if !ok {
			return v, nil
		}
		b := ctx.binding()
		if _, bound := b.Lookup(ref.Root); !bound {
			return v, nil
		}
		return expr.Eval(ref, b)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, elem := range tv {
			resolved, err := resolveValue(ctx, elem)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, elem := range tv {
			resolved, err := resolveValue(ctx, elem)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveArgs resolves positional generator arguments against the context.
func ResolveArgs(ctx *Context, args []interface{}) ([]interface{}, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]interface{}, len(args))
	for i, a := range args {
		resolved, err := resolveValue(ctx, a)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ResolveKwargs resolves keyword generator arguments against the context.
func ResolveKwargs(ctx *Context, kwargs map[string]interface{}) (map[string]interface{}, error) {
	if len(kwargs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(kwargs))
	for k, v := range kwargs {
		resolved, err := resolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}
