package generate

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dbsmedya/synthgen/internal/sqlutil"
)

func registerBuiltins(r *Registry) {
	r.RegisterRowGenerator("constant", genConstant)
	r.RegisterRowGenerator("null", genNull)
	r.RegisterRowGenerator("integer", genInteger)
	r.RegisterRowGenerator("float", genFloat)
	r.RegisterRowGenerator("boolean", genBoolean)
	r.RegisterRowGenerator("weighted_boolean", genWeightedBoolean)
	r.RegisterRowGenerator("string", genString)
	r.RegisterRowGenerator("uuid", genUUID)
	r.RegisterRowGenerator("date", genDate)
	r.RegisterRowGenerator("datetime", genDatetime)
	r.RegisterRowGenerator("timedelta", genTimedelta)
	r.RegisterRowGenerator("increment", genIncrement)
	r.RegisterRowGenerator("choice", genChoice)
	r.RegisterRowGenerator("column_value", genColumnValue)
	r.RegisterRowGenerator("dist_sample", genDistSample)

	r.RegisterMissingnessGenerator("missing_always", MissingAlways)
	r.RegisterMissingnessGenerator("missing_with_probability", MissingWithProbability)
}

func requireKwarg(kwargs map[string]interface{}, name string) (interface{}, error) {
	v, ok := kwargs[name]
	if !ok {
		return nil, fmt.Errorf("missing required kwarg %q", name)
	}
	return v, nil
}

// genConstant returns its configured value verbatim, from the "value" kwarg
// or the first positional argument.
func genConstant(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	if v, ok := kwargs["value"]; ok {
		return v, nil
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return nil, fmt.Errorf("constant: no value configured")
}

func genNull(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	return nil, nil
}

// genInteger draws uniformly from [low, high] inclusive. Defaults to
// [0, 100].
func genInteger(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	low, high := int64(0), int64(100)
	if v, ok := kwargs["low"]; ok {
		low = ToInt64(v)
	}
	if v, ok := kwargs["high"]; ok {
		high = ToInt64(v)
	}
	if high < low {
		return nil, fmt.Errorf("integer: high %d < low %d", high, low)
	}
	return low + ctx.Rand.Int63n(high-low+1), nil
}

// genFloat draws uniformly from [low, high). Defaults to [0, 1).
func genFloat(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	low, high := 0.0, 1.0
	if v, ok := kwargs["low"]; ok {
		low = ToFloat64(v)
	}
	if v, ok := kwargs["high"]; ok {
		high = ToFloat64(v)
	}
	if high < low {
		return nil, fmt.Errorf("float: high %v < low %v", high, low)
	}
	return low + ctx.Rand.Float64()*(high-low), nil
}

func genBoolean(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	return ctx.Rand.Intn(2) == 1, nil
}

// genWeightedBoolean returns true with the configured probability.
func genWeightedBoolean(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	raw, err := requireKwarg(kwargs, "probability")
	if err != nil {
		return nil, fmt.Errorf("weighted_boolean: %w", err)
	}
	prob := ToFloat64(raw)
	if prob < 0 || prob > 1 {
		return nil, fmt.Errorf("weighted_boolean: probability %v outside [0, 1]", prob)
	}
	return ctx.Rand.Float64() < prob, nil
}

const stringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// genString produces a random alphabetic string of the configured length
// (default 10).
func genString(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	length := int64(10)
	if v, ok := kwargs["length"]; ok {
		length = ToInt64(v)
	}
	if length < 0 {
		return nil, fmt.Errorf("string: negative length %d", length)
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = stringAlphabet[ctx.Rand.Intn(len(stringAlphabet))]
	}
	return string(buf), nil
}

// genUUID produces a version 4 UUID from the session's random source, so
// seeded runs reproduce their identifiers.
func genUUID(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	id, err := uuid.NewRandomFromReader(ctx.Rand)
	if err != nil {
		return nil, fmt.Errorf("uuid: %w", err)
	}
	return id.String(), nil
}

func randomDate(ctx *Context, kwargs map[string]interface{}) (time.Time, error) {
	yearMin, yearMax := int64(2000), int64(2025)
	if v, ok := kwargs["year_min"]; ok {
		yearMin = ToInt64(v)
	}
	if v, ok := kwargs["year_max"]; ok {
		yearMax = ToInt64(v)
	}
	if yearMax < yearMin {
		return time.Time{}, fmt.Errorf("year_max %d < year_min %d", yearMax, yearMin)
	}
	start := time.Date(int(yearMin), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(int(yearMax)+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	span := end.Sub(start)
	return start.Add(time.Duration(ctx.Rand.Int63n(int64(span)))), nil
}

// genDate produces a calendar date within the configured year range,
// truncated to midnight UTC.
func genDate(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	t, err := randomDate(ctx, kwargs)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	return t.Truncate(24 * time.Hour), nil
}

// genDatetime produces a timestamp within the configured year range.
func genDatetime(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	t, err := randomDate(ctx, kwargs)
	if err != nil {
		return nil, fmt.Errorf("datetime: %w", err)
	}
	return t, nil
}

// genTimedelta produces a duration between min_seconds and max_seconds.
func genTimedelta(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	minSecs, maxSecs := int64(0), int64(86400)
	if v, ok := kwargs["min_seconds"]; ok {
		minSecs = ToInt64(v)
	}
	if v, ok := kwargs["max_seconds"]; ok {
		maxSecs = ToInt64(v)
	}
	if maxSecs < minSecs {
		return nil, fmt.Errorf("timedelta: max_seconds %d < min_seconds %d", maxSecs, minSecs)
	}
	secs := minSecs
	if maxSecs > minSecs {
		secs += ctx.Rand.Int63n(maxSecs - minSecs + 1)
	}
	return time.Duration(secs) * time.Second, nil
}

// genIncrement returns the next value of a named session-wide counter,
// starting at 1. Useful for surrogate keys.
func genIncrement(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	raw, err := requireKwarg(kwargs, "name")
	if err != nil {
		return nil, fmt.Errorf("increment: %w", err)
	}
	return ctx.Accumulators.Next(ToString(raw)), nil
}

// genChoice picks one element from its candidates: the positional args, or
// the "values" kwarg (typically a src-stats column projection). Optional
// "weights" biases the draw; weight count must match candidate count.
func genChoice(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	candidates := args
	if v, ok := kwargs["values"]; ok {
		list, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("choice: values must be a list, got %T", v)
		}
		candidates = list
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("choice: no candidates configured")
	}

	rawWeights, weighted := kwargs["weights"]
	if !weighted {
		return candidates[ctx.Rand.Intn(len(candidates))], nil
	}

	weightList, ok := rawWeights.([]interface{})
	if !ok {
		return nil, fmt.Errorf("choice: weights must be a list, got %T", rawWeights)
	}
	if len(weightList) != len(candidates) {
		return nil, fmt.Errorf("choice: %d weights for %d candidates", len(weightList), len(candidates))
	}
	var total float64
	weights := make([]float64, len(weightList))
	for i, w := range weightList {
		weights[i] = ToFloat64(w)
		if weights[i] < 0 {
			return nil, fmt.Errorf("choice: negative weight %v", weights[i])
		}
		total += weights[i]
	}
	if total <= 0 {
		return nil, fmt.Errorf("choice: weights sum to zero")
	}
	draw := ctx.Rand.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw < 0 {
			return candidates[i], nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// genColumnValue samples an existing value of table.column. With a
// destination connection it issues a random-order single-row SELECT;
// without one it falls back to rows generated earlier in the session.
// Intended for foreign key columns.
func genColumnValue(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	rawTable, err := requireKwarg(kwargs, "table")
	if err != nil {
		return nil, fmt.Errorf("column_value: %w", err)
	}
	rawColumn, err := requireKwarg(kwargs, "column")
	if err != nil {
		return nil, fmt.Errorf("column_value: %w", err)
	}
	table, column := ToString(rawTable), ToString(rawColumn)

	if ctx.Dest != nil {
		quotedTable, err := sqlutil.QuoteIdentifierSafe(ctx.Dialect, table)
		if err != nil {
			return nil, fmt.Errorf("column_value: %w", err)
		}
		quotedColumn, err := sqlutil.QuoteIdentifierSafe(ctx.Dialect, column)
		if err != nil {
			return nil, fmt.Errorf("column_value: %w", err)
		}
		query, queryArgs, err := sq.Select(quotedColumn).
			From(quotedTable).
			Where(quotedColumn + " IS NOT NULL").
			OrderBy(sqlutil.RandomFunc(ctx.Dialect)).
			Limit(1).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("column_value: building query: %w", err)
		}
		qctx := ctx.Ctx
		if qctx == nil {
			qctx = context.Background()
		}
		var value interface{}
		row := ctx.Dest.QueryRowContext(qctx, query, queryArgs...)
		if err := row.Scan(&value); err != nil {
			return nil, fmt.Errorf("column_value: sampling %s.%s: %w", table, column, err)
		}
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		return value, nil
	}

	if ctx.Generated == nil {
		return nil, fmt.Errorf("column_value: no destination and no generated rows to sample %s.%s", table, column)
	}
	rows := ctx.Generated.Rows(table)
	var pool []interface{}
	for _, r := range rows {
		if v, ok := r[column]; ok && v != nil {
			pool = append(pool, v)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("column_value: no values available for %s.%s", table, column)
	}
	return pool[ctx.Rand.Intn(len(pool))], nil
}

// genDistSample picks one record from a src-stats result (the "from" kwarg,
// a list of records) and returns the requested columns: one column yields
// its value, several yield a tuple in the requested order. An optional
// "weight" column biases the draw, supporting count-shaped query results.
func genDistSample(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	rawFrom, err := requireKwarg(kwargs, "from")
	if err != nil {
		return nil, fmt.Errorf("dist_sample: %w", err)
	}
	records, err := toRecords(rawFrom)
	if err != nil {
		return nil, fmt.Errorf("dist_sample: from: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dist_sample: empty result to sample from")
	}

	idx := 0
	if rawWeight, ok := kwargs["weight"]; ok {
		weightCol := ToString(rawWeight)
		var total float64
		weights := make([]float64, len(records))
		for i, rec := range records {
			w := ToFloat64(rec[weightCol])
			if w < 0 {
				w = 0
			}
			weights[i] = w
			total += w
		}
		if total <= 0 {
			return nil, fmt.Errorf("dist_sample: weight column %q sums to zero", weightCol)
		}
		draw := ctx.Rand.Float64() * total
		for i, w := range weights {
			draw -= w
			if draw < 0 {
				idx = i
				break
			}
		}
	} else {
		idx = ctx.Rand.Intn(len(records))
	}
	record := records[idx]

	rawCols, ok := kwargs["columns"]
	if !ok {
		return record, nil
	}
	cols := ToStringSlice(rawCols)
	if len(cols) == 0 {
		return nil, fmt.Errorf("dist_sample: columns must name at least one column")
	}
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		v, ok := record[col]
		if !ok {
			return nil, fmt.Errorf("dist_sample: column %q not in sampled record", col)
		}
		values[i] = v
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

func toRecords(v interface{}) ([]map[string]interface{}, error) {
	switch rv := v.(type) {
	case []map[string]interface{}:
		return rv, nil
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(rv))
		for _, elem := range rv {
			rec, ok := elem.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("expected a list of records, found element of type %T", elem)
			}
			records = append(records, rec)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("expected a list of records, got %T", v)
	}
}
