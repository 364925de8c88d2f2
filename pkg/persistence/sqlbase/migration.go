// Package sqlbase provides the base functionality for SQL database persistence.
package sqlbase

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

var ErrDuplicateMigration = errors.New("duplicate migration version")

// Migration is one schema change. Versions are applied in ascending order, each
// in its own transaction.
type Migration struct {
	Version    int
	Name       string
	Statements string
}

// MigrationManager brings a database schema up to the latest known migration.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations []Migration) *MigrationManager {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })

	return &MigrationManager{
		db:         db,
		logger:     logger.With("component", "migrations"),
		migrations: sorted,
	}
}

// LatestVersion returns the highest migration version known to the manager.
func (m *MigrationManager) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// RunMigrations applies every migration newer than the recorded schema version.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	for i := 1; i < len(m.migrations); i++ {
		if m.migrations[i].Version == m.migrations[i-1].Version {
			return fmt.Errorf("%w: %d", ErrDuplicateMigration, m.migrations[i].Version)
		}
	}

	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int

	err = m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to query current schema version: %w", err)
	}

	m.logger.InfoContext(ctx, "Checking schema", "version", current, "latest", m.LatestVersion())

	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}

		err := m.apply(ctx, migration)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *MigrationManager) apply(ctx context.Context, migration Migration) error {
	logger := m.logger.With("version", migration.Version, "name", migration.Name)
	logger.InfoContext(ctx, "Applying migration")

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", migration.Version, err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, migration.Statements)
	if err != nil {
		return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		migration.Version, migration.Name)
	if err != nil {
		return fmt.Errorf("migration %d: record: %w", migration.Version, err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("migration %d: commit: %w", migration.Version, err)
	}

	logger.InfoContext(ctx, "Migration applied")

	return nil
}
