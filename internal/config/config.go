// Package config provides configuration structures and loading for synthgen.
package config

// Config represents the complete generation configuration.
type Config struct {
	UseAsyncio               bool                   `yaml:"use-asyncio" mapstructure:"use-asyncio"`
	RowGeneratorsModule      string                 `yaml:"row_generators_module" mapstructure:"row_generators_module"`
	StoryGeneratorsModule    string                 `yaml:"story_generators_module" mapstructure:"story_generators_module"`
	ObjectInstantiation      map[string]ObjectSpec  `yaml:"object_instantiation" mapstructure:"object_instantiation"`
	SrcStats                 []SrcStatQuery         `yaml:"src-stats" mapstructure:"src-stats"`
	StoryGenerators          []StoryGeneratorSpec   `yaml:"story_generators" mapstructure:"story_generators"`
	MaxUniqueConstraintTries int                    `yaml:"max-unique-constraint-tries" mapstructure:"max-unique-constraint-tries"`
	Tables                   map[string]TableConfig `yaml:"tables" mapstructure:"tables"`
	NumPasses                int                    `yaml:"num-passes" mapstructure:"num-passes"`
	Seed                     *int64                 `yaml:"seed" mapstructure:"seed"`
	Source                   DatabaseConfig         `yaml:"source" mapstructure:"source"`
	Destination              DatabaseConfig         `yaml:"destination" mapstructure:"destination"`
	Logging                  LoggingConfig          `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents a database connection configuration.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mysql or sqlite
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	Path               string `yaml:"path" mapstructure:"path"` // sqlite file path
	TLS                string `yaml:"tls" mapstructure:"tls"`   // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// SrcStatQuery represents one source-statistics query block.
// When DPQuery is set, the plain query produces an intermediate result set
// that the differentially private query is executed against.
type SrcStatQuery struct {
	Name         string                    `yaml:"name" mapstructure:"name"`
	Query        string                    `yaml:"query" mapstructure:"query"`
	DPQuery      string                    `yaml:"dp-query" mapstructure:"dp-query"`
	Epsilon      *float64                  `yaml:"epsilon" mapstructure:"epsilon"`
	Delta        *float64                  `yaml:"delta" mapstructure:"delta"`
	MaxIDs       int                       `yaml:"max-ids" mapstructure:"max-ids"`
	SampleMaxIDs bool                      `yaml:"sample-max-ids" mapstructure:"sample-max-ids"`
	ClampCounts  bool                      `yaml:"clamp-counts" mapstructure:"clamp-counts"`
	Metadata     map[string]ColumnMetadata `yaml:"snsql-metadata" mapstructure:"snsql-metadata"`
	Comments     []string                  `yaml:"comments" mapstructure:"comments"`
}

// HasDPQuery returns true if this query block has a differentially private stage.
func (q *SrcStatQuery) HasDPQuery() bool {
	return q.DPQuery != ""
}

// PrivateIDColumn returns the name of the column flagged as the private
// identifier, or empty string if none is declared.
func (q *SrcStatQuery) PrivateIDColumn() string {
	for name, meta := range q.Metadata {
		if meta.PrivateID {
			return name
		}
	}
	return ""
}

// ColumnMetadata describes one column of a DP query's intermediate result set.
// The fields follow the external DP engine's metadata contract and are passed
// through to it unmodified.
type ColumnMetadata struct {
	Type        string   `yaml:"type" mapstructure:"type"`
	Lower       *float64 `yaml:"lower" mapstructure:"lower"`
	Upper       *float64 `yaml:"upper" mapstructure:"upper"`
	Nullable    bool     `yaml:"nullable" mapstructure:"nullable"`
	PrivateID   bool     `yaml:"private_id" mapstructure:"private_id"`
	Sensitivity *float64 `yaml:"sensitivity" mapstructure:"sensitivity"`
}

// TableConfig represents the generation configuration for one table.
type TableConfig struct {
	Ignore                bool                       `yaml:"ignore" mapstructure:"ignore"`
	VocabularyTable       bool                       `yaml:"vocabulary_table" mapstructure:"vocabulary_table"`
	PrimaryPrivate        bool                       `yaml:"primary_private" mapstructure:"primary_private"`
	NumRowsPerPass        *int                       `yaml:"num_rows_per_pass" mapstructure:"num_rows_per_pass"`
	RowGenerators         []RowGeneratorSpec         `yaml:"row_generators" mapstructure:"row_generators"`
	MissingnessGenerators []MissingnessGeneratorSpec `yaml:"missingness_generators" mapstructure:"missingness_generators"`
	UniqueColumns         []UniqueColumnsSpec        `yaml:"unique_columns" mapstructure:"unique_columns"`
}

// RowGeneratorSpec represents one row generator invocation for a table.
// ColumnsAssigned may be a single column name or a list of column names;
// a generator assigned to multiple columns must return a tuple of matching
// length.
type RowGeneratorSpec struct {
	Name            string                 `yaml:"name" mapstructure:"name"`
	Args            []interface{}          `yaml:"args" mapstructure:"args"`
	Kwargs          map[string]interface{} `yaml:"kwargs" mapstructure:"kwargs"`
	ColumnsAssigned interface{}            `yaml:"columns_assigned" mapstructure:"columns_assigned"`
}

// Columns normalizes ColumnsAssigned into a list of column names.
func (s *RowGeneratorSpec) Columns() []string {
	switch v := s.ColumnsAssigned.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		cols := make([]string, 0, len(v))
		for _, c := range v {
			if name, ok := c.(string); ok {
				cols = append(cols, name)
			}
		}
		return cols
	default:
		return nil
	}
}

// MissingnessGeneratorSpec represents one missingness generator for a table.
// The generator decides which of the listed columns are nulled for each row;
// only nullable columns may be targeted.
type MissingnessGeneratorSpec struct {
	Name    string                 `yaml:"name" mapstructure:"name"`
	Kwargs  map[string]interface{} `yaml:"kwargs" mapstructure:"kwargs"`
	Columns []string               `yaml:"columns" mapstructure:"columns"`
}

// UniqueColumnsSpec declares a uniqueness scope over a set of columns,
// supplementing constraints declared in the schema document. MaxTries
// overrides the session-wide retry budget when positive.
type UniqueColumnsSpec struct {
	Columns  []string `yaml:"columns" mapstructure:"columns"`
	MaxTries int      `yaml:"max_tries" mapstructure:"max_tries"`
}

// StoryGeneratorSpec represents one story generator. A single story
// invocation may register rows into multiple tables, independent of
// per-table num_rows_per_pass accounting.
type StoryGeneratorSpec struct {
	Name              string                 `yaml:"name" mapstructure:"name"`
	Args              []interface{}          `yaml:"args" mapstructure:"args"`
	Kwargs            map[string]interface{} `yaml:"kwargs" mapstructure:"kwargs"`
	NumStoriesPerPass int                    `yaml:"num_stories_per_pass" mapstructure:"num_stories_per_pass"`
}

// ObjectSpec describes a named singleton object built once at session start
// and shared by reference across all generator invocations.
type ObjectSpec struct {
	Class  string                 `yaml:"class" mapstructure:"class"`
	Kwargs map[string]interface{} `yaml:"kwargs" mapstructure:"kwargs"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MaxUniqueConstraintTries: 50,
		NumPasses:                1,
		Source: DatabaseConfig{
			Driver:             "mysql",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Destination: DatabaseConfig{
			Driver:             "mysql",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// GetTable returns the generation config for a table, falling back to a
// zero-valued config when the table has no explicit entry.
func (c *Config) GetTable(name string) TableConfig {
	return c.Tables[name]
}

// RowsPerPass returns the number of rows the per-table loop generates each
// pass. Unset defaults to 1; an explicit 0 is honored, the usual setup for
// tables populated only by story generators. Ignored and vocabulary tables
// never generate rows.
func (tc TableConfig) RowsPerPass() int {
	if tc.Ignore || tc.VocabularyTable {
		return 0
	}
	if tc.NumRowsPerPass != nil {
		return *tc.NumRowsPerPass
	}
	return 1
}

// VocabularyTableNames returns the names of all tables flagged as
// vocabulary tables.
func (c *Config) VocabularyTableNames() []string {
	var names []string
	for name, tc := range c.Tables {
		if tc.VocabularyTable {
			names = append(names, name)
		}
	}
	return names
}

// IgnoredTableNames returns the names of all tables flagged as ignored.
func (c *Config) IgnoredTableNames() []string {
	var names []string
	for name, tc := range c.Tables {
		if tc.Ignore {
			names = append(names, name)
		}
	}
	return names
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, numPasses int) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if numPasses > 0 {
		c.NumPasses = numPasses
	}
}
