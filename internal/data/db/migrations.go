package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/grader/internal/core/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one versioned schema change with its inverse.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

type direction string

const (
	up   direction = "up"
	down direction = "down"
)

// loadMigrations parses the embedded SQL files, sorted by version. Every
// version needs exactly one up and one down file.
func loadMigrations() ([]Migration, error) {
	files, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, f := range files {
		if f.IsDir() {
			continue
		}

		version, name, dir, err := parseFilename(f.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid migration filename %q: %w", f.Name(), err)
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+f.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %04d has conflicting names %q and %q", version, m.Name, name)
		}

		target := &m.UpSQL
		if dir == down {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %04d", dir, version)
		}
		*target = string(content)
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %04d must have both up and down files", m.Version)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

// parseFilename splits "NNNN_name.up.sql" or "NNNN_name.down.sql".
func parseFilename(filename string) (int, string, direction, error) {
	var dir direction
	switch {
	case strings.HasSuffix(filename, ".up.sql"):
		dir = up
		filename = strings.TrimSuffix(filename, ".up.sql")
	case strings.HasSuffix(filename, ".down.sql"):
		dir = down
		filename = strings.TrimSuffix(filename, ".down.sql")
	default:
		return 0, "", "", fmt.Errorf("expected .up.sql or .down.sql suffix, got %q", filename)
	}

	prefix, name, ok := strings.Cut(filename, "_")
	if !ok || name == "" {
		return 0, "", "", fmt.Errorf("expected format NNNN_name.{up,down}.sql")
	}

	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, "", "", fmt.Errorf("version %q is not a valid integer: %w", prefix, err)
	}
	if version <= 0 {
		return 0, "", "", fmt.Errorf("version must be positive, got %d", version)
	}
	return version, name, dir, nil
}

// migrateUp applies every pending migration in version order.
func migrateUp(ctx context.Context, conn *sql.DB) error {
	migrations, applied, err := migrationState(ctx, conn)
	if err != nil {
		return err
	}

	logger := logging.Component("db")
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		if err := runMigration(ctx, conn, m, up); err != nil {
			return fmt.Errorf("migration %04d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the last n applied migrations, newest first.
func MigrateDown(ctx context.Context, conn *sql.DB, n int) error {
	if n <= 0 {
		return fmt.Errorf("n must be positive, got %d", n)
	}

	migrations, applied, err := migrationState(ctx, conn)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for _, m := range slices.Backward(migrations) {
		if applied[m.Version] {
			toRevert = append(toRevert, m)
		}
	}
	if n > len(toRevert) {
		return fmt.Errorf("requested %d down migrations but only %d are applied", n, len(toRevert))
	}

	logger := logging.Component("db")
	for _, m := range toRevert[:n] {
		logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("reverting migration")
		if err := runMigration(ctx, conn, m, down); err != nil {
			return fmt.Errorf("revert migration %04d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func migrationState(ctx context.Context, conn *sql.DB) ([]Migration, map[int]bool, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	rows, err := conn.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("querying applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, nil, fmt.Errorf("scanning version: %w", err)
		}
		applied[v] = true
	}
	return migrations, applied, rows.Err()
}

// runMigration executes one direction of m and updates the bookkeeping table
// in the same transaction.
func runMigration(ctx context.Context, conn *sql.DB, m Migration, dir direction) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt := m.UpSQL
	if dir == down {
		stmt = m.DownSQL
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}

	if dir == up {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UnixNano(),
		)
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version)
	}
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}
