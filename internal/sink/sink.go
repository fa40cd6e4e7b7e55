// Package sink persists generated rows: a SQL insert sink for real
// destinations and an in-memory buffer used for dry runs, tests and
// cross-row lookups.
package sink

import (
	"context"
	"sort"
	"sync"
)

// Sink receives generated rows in production order.
type Sink interface {
	// WriteRow persists one row for the named table.
	WriteRow(ctx context.Context, table string, row map[string]interface{}) error
	// Flush forces any buffered writes out. Called at the end of each pass.
	Flush(ctx context.Context) error
}

// Buffer is an in-memory sink. It also serves generators that sample from
// rows produced earlier in the session, so reads and writes may interleave.
type Buffer struct {
	mu   sync.RWMutex
	rows map[string][]map[string]interface{}
}

// NewBuffer creates an empty buffer sink.
func NewBuffer() *Buffer {
	return &Buffer{rows: make(map[string][]map[string]interface{})}
}

// WriteRow implements Sink.
func (b *Buffer) WriteRow(_ context.Context, table string, row map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[table] = append(b.rows[table], row)
	return nil
}

// Flush implements Sink. The buffer has nothing to flush.
func (b *Buffer) Flush(_ context.Context) error {
	return nil
}

// Rows returns the rows written for the named table, in write order.
func (b *Buffer) Rows(table string) []map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rows[table]
}

// Counts returns the number of rows written per table.
func (b *Buffer) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[string]int, len(b.rows))
	for table, rows := range b.rows {
		counts[table] = len(rows)
	}
	return counts
}

// Tables returns the names of tables with at least one row, sorted.
func (b *Buffer) Tables() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.rows))
	for table := range b.rows {
		names = append(names, table)
	}
	sort.Strings(names)
	return names
}
