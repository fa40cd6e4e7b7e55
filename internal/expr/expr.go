// Package expr implements the narrow lookup-expression language embedded in
// generator arguments, e.g. SRC_STATS["hospital_visits"]["results"]["count"].
// It deliberately supports nothing beyond a root identifier followed by
// string subscripts, so configuration cannot reach arbitrary capabilities.
package expr

import (
	"fmt"
	"strings"
)

// Ref is a parsed lookup expression: a root binding name followed by zero or
// more string subscripts.
type Ref struct {
	Root string
	Path []string
}

// String reconstructs the canonical form of the expression.
func (r *Ref) String() string {
	var b strings.Builder
	b.WriteString(r.Root)
	for _, p := range r.Path {
		fmt.Fprintf(&b, "[%q]", p)
	}
	return b.String()
}

// Parse attempts to parse s as a lookup expression. The second return value
// is false when s is not shaped like one; that is not an error, the caller
// treats such strings as literals.
func Parse(s string) (*Ref, bool) {
	s = strings.TrimSpace(s)
	i := 0

	start := i
	for i < len(s) && isIdentRune(s[i], i == start) {
		i++
	}
	if i == start {
		return nil, false
	}
	ref := &Ref{Root: s[start:i]}

	for i < len(s) {
		if s[i] != '[' {
			return nil, false
		}
		i++
		if i >= len(s) || (s[i] != '"' && s[i] != '\'') {
			return nil, false
		}
		quote := s[i]
		i++
		keyStart := i
		for i < len(s) && s[i] != quote {
			i++
		}
		if i >= len(s) {
			return nil, false
		}
		ref.Path = append(ref.Path, s[keyStart:i])
		i++ // closing quote
		if i >= len(s) || s[i] != ']' {
			return nil, false
		}
		i++
	}

	return ref, true
}

func isIdentRune(c byte, first bool) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return !first && c >= '0' && c <= '9'
}

// Binding resolves root names to values during evaluation.
type Binding interface {
	// Lookup returns the value bound to the given root name.
	Lookup(root string) (interface{}, bool)
}

// BindingFunc adapts a function to the Binding interface.
type BindingFunc func(root string) (interface{}, bool)

// Lookup implements Binding.
func (f BindingFunc) Lookup(root string) (interface{}, bool) {
	return f(root)
}

// Eval resolves a parsed reference against the binding, applying each
// subscript in turn. Subscripting a list of records projects the named
// column across all records.
func Eval(ref *Ref, b Binding) (interface{}, error) {
	value, ok := b.Lookup(ref.Root)
	if !ok {
		return nil, fmt.Errorf("unknown reference %q", ref.Root)
	}

	for _, key := range ref.Path {
		next, err := subscript(value, key)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", ref.String(), err)
		}
		value = next
	}

	return value, nil
}

func subscript(value interface{}, key string) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		entry, ok := v[key]
		if !ok {
			return nil, fmt.Errorf("key %q not found", key)
		}
		return entry, nil
	case []map[string]interface{}:
		projected := make([]interface{}, 0, len(v))
		for _, record := range v {
			entry, ok := record[key]
			if !ok {
				return nil, fmt.Errorf("column %q not found in result records", key)
			}
			projected = append(projected, entry)
		}
		return projected, nil
	case []interface{}:
		projected := make([]interface{}, 0, len(v))
		for _, elem := range v {
			record, ok := elem.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("cannot subscript element of type %T with %q", elem, key)
			}
			entry, ok := record[key]
			if !ok {
				return nil, fmt.Errorf("column %q not found in result records", key)
			}
			projected = append(projected, entry)
		}
		return projected, nil
	case Subscriptable:
		return v.Subscript(key)
	default:
		return nil, fmt.Errorf("cannot subscript value of type %T with %q", value, key)
	}
}

// Subscriptable lets domain types participate in subscript evaluation
// without this package importing them.
type Subscriptable interface {
	Subscript(key string) (interface{}, error)
}
