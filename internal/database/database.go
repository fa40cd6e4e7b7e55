// Package database provides connection management for the source and
// destination databases.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/sqlutil"
)

// Manager handles database connections for source and destination. The
// source is read for statistics collection; the destination receives
// generated rows and may also be sampled by generators.
type Manager struct {
	Source      *sql.DB
	Destination *sql.DB
	config      *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect establishes connections to both configured databases.
func (m *Manager) Connect(ctx context.Context) error {
	var err error

	m.Source, err = m.connectWithRetry(ctx, &m.config.Source)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}

	m.Destination, err = m.connectWithRetry(ctx, &m.config.Destination)
	if err != nil {
		m.Source.Close()
		return fmt.Errorf("failed to connect to destination database: %w", err)
	}

	return nil
}

// ConnectSource establishes connection to the source database only.
// Use this when only statistics collection is needed.
func (m *Manager) ConnectSource(ctx context.Context) error {
	var err error

	m.Source, err = m.connectWithRetry(ctx, &m.config.Source)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}

	return nil
}

// ConnectDestination establishes connection to the destination database
// only. Use this for generation runs that load statistics from a file.
func (m *Manager) ConnectDestination(ctx context.Context) error {
	var err error

	m.Destination, err = m.connectWithRetry(ctx, &m.config.Destination)
	if err != nil {
		return fmt.Errorf("failed to connect to destination database: %w", err)
	}

	return nil
}

// DestinationDialect returns the identifier quoting dialect of the
// configured destination.
func (m *Manager) DestinationDialect() sqlutil.Dialect {
	return Dialect(&m.config.Destination)
}

// Dialect maps a database configuration onto its quoting dialect.
func Dialect(cfg *config.DatabaseConfig) sqlutil.Dialect {
	if cfg.Driver == "sqlite" {
		return sqlutil.DialectSQLite
	}
	return sqlutil.DialectMySQL
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect(cfg)
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates a database connection.
func (m *Manager) connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a path")
		}
		db, err = sql.Open("sqlite", cfg.Path)
	case "mysql", "":
		db, err = sql.Open("mysql", BuildDSN(cfg))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	// Add TLS configuration
	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes all database connections gracefully.
func (m *Manager) Close() error {
	var errs []error

	if m.Destination != nil {
		if err := m.Destination.Close(); err != nil {
			errs = append(errs, fmt.Errorf("destination close: %w", err))
		}
	}

	if m.Source != nil {
		if err := m.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("source close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies all connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Source != nil {
		if err := m.Source.PingContext(ctx); err != nil {
			return fmt.Errorf("source ping failed: %w", err)
		}
	}

	if m.Destination != nil {
		if err := m.Destination.PingContext(ctx); err != nil {
			return fmt.Errorf("destination ping failed: %w", err)
		}
	}

	return nil
}
