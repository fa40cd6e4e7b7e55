package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synthgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfigFile(t, `
use-asyncio: true
row_generators_module: row_generators
max-unique-constraint-tries: 25
num-passes: 3
src-stats:
  - name: visit_counts
    query: SELECT COUNT(*) AS num FROM visits
    comments:
      - counts all visits
tables:
  concept:
    vocabulary_table: true
  visits:
    num_rows_per_pass: 10
    row_generators:
      - name: integer
        kwargs:
          low: 1
          high: 5
        columns_assigned: severity
source:
  driver: mysql
  host: localhost
  port: 3306
  user: reader
  password: secret
  database: prod
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.UseAsyncio)
	assert.Equal(t, "row_generators", cfg.RowGeneratorsModule)
	assert.Equal(t, 25, cfg.MaxUniqueConstraintTries)
	assert.Equal(t, 3, cfg.NumPasses)

	require.Len(t, cfg.SrcStats, 1)
	assert.Equal(t, "visit_counts", cfg.SrcStats[0].Name)
	assert.False(t, cfg.SrcStats[0].HasDPQuery())

	require.Contains(t, cfg.Tables, "visits")
	visits := cfg.GetTable("visits")
	assert.Equal(t, 10, visits.RowsPerPass())
	require.Len(t, visits.RowGenerators, 1)
	assert.Equal(t, []string{"severity"}, visits.RowGenerators[0].Columns())

	assert.True(t, cfg.GetTable("concept").VocabularyTable)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
tables:
  patients: {}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxUniqueConstraintTries)
	assert.Equal(t, 1, cfg.NumPasses)
	assert.False(t, cfg.UseAsyncio)

	// Non-ignored, non-vocabulary tables default to one row per pass.
	assert.Equal(t, 1, cfg.GetTable("patients").RowsPerPass())
	// Unconfigured tables get the same defaults.
	assert.Equal(t, 1, cfg.GetTable("unlisted").RowsPerPass())
}

func TestLoad_ExplicitZeroRowsPerPass(t *testing.T) {
	path := writeConfigFile(t, `
tables:
  visits:
    num_rows_per_pass: 0
  concept:
    vocabulary_table: true
  audit_log:
    ignore: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// An explicit zero means the table is populated by stories only; it
	// must not be coerced to the one-row default.
	assert.Equal(t, 0, cfg.GetTable("visits").RowsPerPass())
	assert.Equal(t, 0, cfg.GetTable("concept").RowsPerPass())
	assert.Equal(t, 0, cfg.GetTable("audit_log").RowsPerPass())
}

func TestLoad_UnknownKeysRejected(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "Unknown top-level key",
			content: `
num-passes: 2
story_genertors: []
`,
		},
		{
			name: "Unknown table key",
			content: `
tables:
  visits:
    num_rows_per_passs: 5
`,
		},
		{
			name: "Unknown row generator key",
			content: `
tables:
  visits:
    row_generators:
      - name: integer
        colums_assigned: id
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unmarshal")
		})
	}
}

func TestLoad_EnvVarSubstitution(t *testing.T) {
	t.Setenv("SYNTHGEN_TEST_PASSWORD", "s3cret")
	t.Setenv("SYNTHGEN_TEST_HOST", "db.internal")

	path := writeConfigFile(t, `
source:
  host: ${SYNTHGEN_TEST_HOST}
  password: ${SYNTHGEN_TEST_PASSWORD}
destination:
  password: ${SYNTHGEN_TEST_MISSING_VAR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Source.Host)
	assert.Equal(t, "s3cret", cfg.Source.Password)
	// Unset variables substitute to empty, matching os.ExpandEnv.
	assert.Equal(t, "", cfg.Destination.Password)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/synthgen.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSrcStatQuery_PrivateIDColumn(t *testing.T) {
	q := SrcStatQuery{
		Metadata: map[string]ColumnMetadata{
			"visit_count": {Type: "int", Lower: ptrFloat(0), Upper: ptrFloat(100)},
			"patient_id":  {Type: "int", PrivateID: true},
		},
	}
	assert.Equal(t, "patient_id", q.PrivateIDColumn())

	q.Metadata = map[string]ColumnMetadata{"visit_count": {Type: "int"}}
	assert.Equal(t, "", q.PrivateIDColumn())
}

func ptrFloat(f float64) *float64 {
	return &f
}

func ptrInt(i int) *int {
	return &i
}
