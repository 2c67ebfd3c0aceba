// Package database provides database access for the highscore service
package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
	driver string
}

// New creates a new database connection.
// For the sqlite driver dsn is a file path.
func New(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; keeps busy errors away from concurrent submissions.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: driver}, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

// Driver returns the driver name the connection was opened with
func (db *DB) Driver() string {
	return db.driver
}

// Rebind rewrites ? placeholders into the driver's bind syntax
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Migrate creates all required tables
func (db *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS highscores (
		team TEXT PRIMARY KEY,
		best BIGINT NOT NULL
	)`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS highscores`)
	return err
}

// CleanData deletes all rows without dropping tables (for testing)
func (db *DB) CleanData(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM highscores`)
	return err
}
