package stats

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sync"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/logger"
)

// Executor runs SQL queries against the source database. *sql.DB satisfies it.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// DPQuery carries a differentially private query together with its privacy
// budget and the metadata describing the intermediate result set.
type DPQuery struct {
	Query    string
	Epsilon  float64
	Delta    float64
	Metadata map[string]config.ColumnMetadata
}

// PrivateReader executes a DP query over an in-memory intermediate result
// set under the given privacy parameters. Implementations wrap an external
// DP engine; the noise mechanism itself is outside this package.
type PrivateReader interface {
	Execute(ctx context.Context, intermediate Rows, q DPQuery) (Rows, error)
}

// QueryError reports a failed src-stats query with its name and stage.
type QueryError struct {
	Name  string
	Stage string // "query" or "dp-query"
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("src-stats query %q failed at %s stage: %v", e.Name, e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Collector executes the configured src-stats queries, producing the shared
// Result mapping. Queries are independent and may run concurrently; a DP
// query always runs strictly after its own plain query.
type Collector struct {
	db         Executor
	reader     PrivateReader
	log        *logger.Logger
	concurrent bool
	rng        *rand.Rand
}

// NewCollector creates a collector. reader may be nil when no query block
// declares a dp-query; concurrent enables parallel execution of independent
// query blocks.
func NewCollector(db Executor, reader PrivateReader, log *logger.Logger, concurrent bool) (*Collector, error) {
	if db == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Collector{
		db:         db,
		reader:     reader,
		log:        log,
		concurrent: concurrent,
	}, nil
}

// SetRand sets the random source used when sampling private identifiers.
// Without one, sampling degrades to a deterministic prefix.
func (c *Collector) SetRand(rng *rand.Rand) {
	c.rng = rng
}

// Collect runs all query blocks and returns the results keyed by query
// name, in declaration order. Any failure is fatal: downstream generators
// dereference these results unconditionally.
func (c *Collector) Collect(ctx context.Context, queries []config.SrcStatQuery) (*Result, error) {
	results := make([]*QueryResult, len(queries))
	errs := make([]error, len(queries))

	if c.concurrent {
		var wg sync.WaitGroup
		for i := range queries {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = c.runQueryBlock(ctx, &queries[i])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range queries {
			results[i], errs[i] = c.runQueryBlock(ctx, &queries[i])
			if errs[i] != nil {
				break
			}
		}
	}

	// Surface the first failure in declaration order.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := NewResult()
	for i, q := range queries {
		if len(results[i].Rows) == 0 {
			c.log.WithQuery(q.Name).Warn("src-stats query returned no results")
		}
		result.Set(q.Name, results[i])
	}
	return result, nil
}

// runQueryBlock executes one query block: the plain query always, then the
// DP stage when configured. Only the DP output is stored for DP blocks; the
// intermediate result set never leaves this function.
func (c *Collector) runQueryBlock(ctx context.Context, q *config.SrcStatQuery) (*QueryResult, error) {
	log := c.log.WithQuery(q.Name)
	log.Debug("Executing src-stats query")

	rows, err := c.execute(ctx, q.Query)
	if err != nil {
		return nil, &QueryError{Name: q.Name, Stage: "query", Err: err}
	}

	if !q.HasDPQuery() {
		return &QueryResult{Rows: rows, Comments: q.Comments}, nil
	}

	if c.reader == nil {
		return nil, &QueryError{
			Name:  q.Name,
			Stage: "dp-query",
			Err:   fmt.Errorf("no private reader configured"),
		}
	}

	intermediate := preprocessPrivateIDs(rows, q, c.rng)

	log.Debug("Executing dp-query over intermediate result set")
	dp := DPQuery{
		Query:    q.DPQuery,
		Epsilon:  *q.Epsilon,
		Metadata: q.Metadata,
	}
	if q.Delta != nil {
		dp.Delta = *q.Delta
	}

	private, err := c.reader.Execute(ctx, intermediate, dp)
	if err != nil {
		return nil, &QueryError{Name: q.Name, Stage: "dp-query", Err: err}
	}

	return &QueryResult{Rows: private, Comments: q.Comments}, nil
}

// execute runs a SQL query and materializes the result set.
func (c *Collector) execute(ctx context.Context, query string) (Rows, error) {
	sqlRows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	columns, err := sqlRows.Columns()
	if err != nil {
		return nil, err
	}

	var out Rows
	for sqlRows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := sqlRows.Scan(pointers...); err != nil {
			return nil, err
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		out = append(out, record)
	}

	if err := sqlRows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// normalizeValue converts driver byte slices to strings so results compare
// and serialize predictably.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
