// Package db wraps the SQLite database that backs the local grading server.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file created in the data directory.
const FileName = "grader.db"

const (
	maxRetries  = 5
	initialWait = 100 * time.Millisecond
)

// OpenOptions configures the connection pool.
type OpenOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultOpenOptions returns the pool settings used when none are configured.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

// DB wraps a SQL database connection with retry logic and typed queries.
type DB struct {
	conn    *sql.DB
	queries *Queries
	path    string
}

// Open creates the database in dataDir if needed, applies pending migrations
// and returns the connection.
func Open(dataDir string, opts OpenOptions) (*DB, error) {
	dbPath := filepath.Join(dataDir, FileName)

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)",
		dbPath, opts.BusyTimeout.Milliseconds(),
	)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(0)

	db := &DB{
		conn:    conn,
		queries: New(conn),
		path:    dbPath,
	}

	ctx := context.Background()
	if err := db.pingWithRetry(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrateUp(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Conn returns the underlying connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Queries returns the query set bound to the connection.
func (db *DB) Queries() *Queries {
	return db.queries
}

// WithTx executes fn within a transaction. If fn returns an error the
// transaction is rolled back.
func (db *DB) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(db.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pingWithRetry attempts to ping the database with exponential backoff.
func (db *DB) pingWithRetry(ctx context.Context) error {
	wait := initialWait
	var err error
	for i := range maxRetries {
		if err = db.conn.PingContext(ctx); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			time.Sleep(wait)
			wait *= 2
		}
	}
	return fmt.Errorf("failed to ping database after %d retries: %w", maxRetries, err)
}
