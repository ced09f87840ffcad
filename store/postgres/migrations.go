package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/xraph/coldrun"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// applyMigrations runs every embedded migration not yet applied to
// dsn, via golang-migrate's iofs source driver. golang-migrate opens
// its own connection rather than sharing the caller's pgxpool.
func applyMigrations(_ context.Context, dsn string, logger *slog.Logger) error {
	if dsn == "" {
		return fmt.Errorf("%w: migrations require a connection string (see WithMigrationDSN)", coldrun.ErrMigrationFailed)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("%w: open embedded migrations: %w", coldrun.ErrMigrationFailed, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("%w: init migrator: %w", coldrun.ErrMigrationFailed, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: apply migrations: %w", coldrun.ErrMigrationFailed, err)
	}

	if version, _, verr := m.Version(); verr == nil {
		logger.Info("migrations applied", slog.Uint64("version", uint64(version)))
	}
	return nil
}
