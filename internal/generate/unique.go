package generate

import (
	"fmt"
	"strings"
	"sync"
)

// Scope tracks values seen for one uniqueness constraint of one table.
// Keys are derived from the constrained columns' values; a nil in any
// constrained column exempts the row, matching SQL semantics where NULL
// never collides with NULL.
type Scope struct {
	Table    string
	Columns  []string
	MaxTries int

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewScope creates a uniqueness scope with the given retry budget.
func NewScope(table string, columns []string, maxTries int) *Scope {
	return &Scope{
		Table:    table,
		Columns:  columns,
		MaxTries: maxTries,
		seen:     make(map[string]struct{}),
	}
}

// key builds the dedup key for the scope's columns from a candidate row.
// The second return value is false when any constrained column is nil.
func (s *Scope) key(row map[string]interface{}) (string, bool) {
	parts := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		v, ok := row[col]
		if !ok || v == nil {
			return "", false
		}
		parts = append(parts, fmt.Sprintf("%T=%v", v, v))
	}
	return strings.Join(parts, "\x1f"), true
}

// Claim records the candidate row's constrained values. It returns false
// when the combination was already claimed; rows with a nil constrained
// column always claim successfully without being recorded.
func (s *Scope) Claim(row map[string]interface{}) bool {
	k, ok := s.key(row)
	if !ok {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Has reports whether the candidate row's constrained values were claimed
// before, without claiming them.
func (s *Scope) Has(row map[string]interface{}) bool {
	k, ok := s.key(row)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, dup := s.seen[k]
	return dup
}

// Exhausted builds the fatal error for a scope whose retry budget ran out.
func (s *Scope) Exhausted() error {
	return &ExhaustedError{Table: s.Table, Columns: s.Columns, Tries: s.MaxTries}
}
