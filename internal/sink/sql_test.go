package sink

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/synthgen/internal/logger"
	"github.com/dbsmedya/synthgen/internal/sqlutil"
)

func TestSQLSink_WriteRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLSink(db, sqlutil.DialectMySQL, logger.NewNop())
	ctx := context.Background()

	// Columns are sorted, so the statement shape is stable.
	mock.ExpectExec("INSERT INTO `visits` \\(`duration`,`severity`,`ward`\\) VALUES \\(\\?,\\?,\\?\\)").
		WithArgs(int64(90), 3, "A").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.WriteRow(ctx, "visits", map[string]interface{}{
		"ward":     "A",
		"severity": 3,
		"duration": 90 * time.Second, // durations become whole seconds
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Written("visits"))

	require.NoError(t, s.Flush(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_SQLiteQuoting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLSink(db, sqlutil.DialectSQLite, logger.NewNop())

	mock.ExpectExec(`INSERT INTO "patients" \("name"\) VALUES \(\?\)`).
		WithArgs("Alice").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.WriteRow(context.Background(), "patients", map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_Rejections(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLSink(db, sqlutil.DialectMySQL, logger.NewNop())
	ctx := context.Background()

	assert.Error(t, s.WriteRow(ctx, "visits", map[string]interface{}{}))
	assert.Error(t, s.WriteRow(ctx, "visits; DROP TABLE visits", map[string]interface{}{"a": 1}))
	assert.Error(t, s.WriteRow(ctx, "visits", map[string]interface{}{"bad column": 1}))
	assert.Equal(t, int64(0), s.Written("visits"))
}
