// Package migrate applies the embedded goose migrations for the catalog schema.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/emergent-company/moviebench/migrations"
)

// Migrator runs the embedded migrations against one database.
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// NewMigrator creates a Migrator over the embedded migration set.
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	return newMigrator(db, migrations.FS, logger)
}

func newMigrator(db *sql.DB, fsys fs.FS, logger *zap.Logger) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return &Migrator{
		provider: provider,
		logger:   logger.Named("migrator"),
	}, nil
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.logger.Info("running database migrations")

	results, err := m.provider.Up(ctx)
	m.logResults(results)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logger.Info("migrations completed successfully", zap.Int("applied", len(results)))
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	m.logger.Info("rolling back last migration")

	result, err := m.provider.Down(ctx)
	if result != nil {
		m.logResults([]*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	m.logger.Info("rollback completed successfully")
	return nil
}

// MigrationState is one row of Status output.
type MigrationState struct {
	Version int64
	Path    string
	Applied bool
}

// Status lists every known migration and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// Sources returns the versions of the embedded migrations in order.
func (m *Migrator) Sources() []int64 {
	sources := m.provider.ListSources()
	versions := make([]int64, 0, len(sources))
	for _, s := range sources {
		versions = append(versions, s.Version)
	}
	return versions
}

func (m *Migrator) logResults(results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fields := []zap.Field{
			zap.Int64("version", r.Source.Version),
			zap.String("direction", r.Direction),
			zap.Duration("duration", r.Duration),
		}
		if r.Error != nil {
			m.logger.Error("migration failed", append(fields, zap.Error(r.Error))...)
			continue
		}
		m.logger.Info("migration applied", fields...)
	}
}
