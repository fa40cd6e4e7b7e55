// Package generate provides the generator registry, the per-table row
// generation pipeline, uniqueness retry and missingness application.
package generate

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"

	"github.com/dbsmedya/synthgen/internal/sqlutil"
	"github.com/dbsmedya/synthgen/internal/stats"
)

// RowView gives generators read access to rows generated earlier in the
// session. Implementations must be safe for concurrent reads.
type RowView interface {
	Rows(table string) []map[string]interface{}
}

// Context carries the shared state a generator invocation may draw on.
// Stats and Objects are read-only once the session is past stats loading;
// Row is the row under construction and is owned by a single pipeline call.
type Context struct {
	Ctx          context.Context
	Rand         *rand.Rand
	Dest         *sql.DB
	Dialect      sqlutil.Dialect
	Stats        *stats.Result
	Objects      map[string]interface{}
	Row          map[string]interface{}
	Accumulators *Accumulators
	Generated    RowView
}

// Accumulators holds named monotonic counters shared across a session,
// backing the increment builtin.
type Accumulators struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewAccumulators creates an empty accumulator set.
func NewAccumulators() *Accumulators {
	return &Accumulators{counters: make(map[string]int64)}
}

// Next increments and returns the named counter. The first call returns 1.
func (a *Accumulators) Next(name string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[name]++
	return a.counters[name]
}

// Peek returns the current value of the named counter without incrementing.
func (a *Accumulators) Peek(name string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[name]
}
