package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dbsmedya/synthgen/internal/logger"
	"github.com/dbsmedya/synthgen/internal/sqlutil"
)

// Execer is the database surface the SQL sink needs. *sql.DB and *sql.Tx
// both satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLSink inserts generated rows into the destination database, one INSERT
// per row. Column order is sorted so statements are stable across runs.
type SQLSink struct {
	db      Execer
	dialect sqlutil.Dialect
	log     *logger.Logger
	written map[string]int64
}

// NewSQLSink creates a sink writing through the given database handle.
func NewSQLSink(db Execer, dialect sqlutil.Dialect, log *logger.Logger) *SQLSink {
	return &SQLSink{
		db:      db,
		dialect: dialect,
		log:     log,
		written: make(map[string]int64),
	}
}

// WriteRow implements Sink.
func (s *SQLSink) WriteRow(ctx context.Context, table string, row map[string]interface{}) error {
	if len(row) == 0 {
		return fmt.Errorf("refusing to insert empty row into %s", table)
	}
	quotedTable, err := sqlutil.QuoteIdentifierSafe(s.dialect, table)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}

	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		q, err := sqlutil.QuoteIdentifierSafe(s.dialect, col)
		if err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
		quoted[i] = q
		values[i] = normalizeValue(row[col])
	}

	query, args, err := sq.Insert(quotedTable).Columns(quoted...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("building insert for %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	s.written[table]++
	return nil
}

// Flush implements Sink. Inserts are not buffered; Flush only logs the
// running totals.
func (s *SQLSink) Flush(_ context.Context) error {
	for table, n := range s.written {
		s.log.WithTable(table).Debugw("rows written", "total", n)
	}
	return nil
}

// Written returns the number of rows inserted into the named table so far.
func (s *SQLSink) Written(table string) int64 {
	return s.written[table]
}

// normalizeValue maps Go values without a native SQL representation onto
// ones drivers accept. Durations become whole seconds.
func normalizeValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case time.Duration:
		return int64(tv / time.Second)
	default:
		return v
	}
}
