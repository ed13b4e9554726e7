package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var newWithInstance = migrate.NewWithInstance

// Direction selects which way Migrate moves the schema
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies (Up) or reverts (Down) every embedded migration.
// It runs on a dedicated connection so db stays open afterwards.
func Migrate(ctx context.Context, db *sql.DB, dir Direction, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := newMigrator(src, driver, logger)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("failed to close migration source", slog.String("error", srcErr.Error()))
		}
		if dbErr != nil {
			logger.Warn("failed to close migration database", slog.String("error", dbErr.Error()))
		}
	}()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to apply", slog.String("direction", string(dir)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations %s: %w", dir, err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied",
		slog.String("direction", string(dir)),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// newMigrator pairs src with driver. On failure driver is closed, which also
// releases the connection it was built on.
func newMigrator(src source.Driver, driver migratedb.Driver, logger *slog.Logger) (*migrate.Migrate, error) {
	m, err := newWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		if cerr := driver.Close(); cerr != nil {
			logger.Warn("failed to close migration database", slog.String("error", cerr.Error()))
		}
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}
