package database

import (
	"testing"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/sqlutil"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.DatabaseConfig
		expected string
	}{
		{
			name: "basic DSN",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "testdb",
				TLS:      "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/testdb?parseTime=true&tls=preferred",
		},
		{
			name: "DSN without database",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				TLS:      "preferred",
			},
			expected: "root:secret@tcp(localhost:3306)/?parseTime=true&tls=preferred",
		},
		{
			name: "DSN with TLS disabled",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "testdb",
				TLS:      "disable",
			},
			expected: "root:secret@tcp(localhost:3306)/testdb?parseTime=true&tls=false",
		},
		{
			name: "DSN with TLS required",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "secret",
				Database: "testdb",
				TLS:      "required",
			},
			expected: "root:secret@tcp(localhost:3306)/testdb?parseTime=true&tls=true",
		},
		{
			name: "DSN with empty TLS defaults to preferred",
			cfg: &config.DatabaseConfig{
				Host:     "db.internal",
				Port:     3307,
				User:     "synth",
				Password: "pw",
				Database: "records",
			},
			expected: "synth:pw@tcp(db.internal:3307)/records?parseTime=true&tls=preferred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDSN(tt.cfg)
			if got != tt.expected {
				t.Errorf("BuildDSN() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDialect(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.DatabaseConfig
		expected sqlutil.Dialect
	}{
		{"sqlite driver", &config.DatabaseConfig{Driver: "sqlite"}, sqlutil.DialectSQLite},
		{"mysql driver", &config.DatabaseConfig{Driver: "mysql"}, sqlutil.DialectMySQL},
		{"empty driver defaults to mysql", &config.DatabaseConfig{}, sqlutil.DialectMySQL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dialect(tt.cfg); got != tt.expected {
				t.Errorf("Dialect() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConnectRejectsBadDriverConfig(t *testing.T) {
	m := NewManager(config.DefaultConfig())

	tests := []struct {
		name string
		cfg  *config.DatabaseConfig
	}{
		{"sqlite without path", &config.DatabaseConfig{Driver: "sqlite"}},
		{"unsupported driver", &config.DatabaseConfig{Driver: "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.connect(tt.cfg); err == nil {
				t.Error("connect() expected error, got nil")
			}
		})
	}
}

func TestCloseWithoutConnections(t *testing.T) {
	m := NewManager(config.DefaultConfig())
	if err := m.Close(); err != nil {
		t.Errorf("Close() on unconnected manager returned %v", err)
	}
}
