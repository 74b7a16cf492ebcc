package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrDirtySchema means a previous migration stopped half way and needs an operator.
var ErrDirtySchema = errors.New("checkout schema is dirty")

func newMigrator(primaryDSN string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "pgx5://"+primaryDSN)
	if err != nil {
		return nil, fmt.Errorf("open migration target: %w", err)
	}
	return m, nil
}

// RunMigrations brings the orders and payment_audit schema up to date on the primary.
// A dirty schema is reported instead of being migrated over.
func RunMigrations(logger *zap.Logger, primaryDSN string) error {
	m, err := newMigrator(primaryDSN)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if version, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply checkout migrations: %w", err)
	}
	version, _, _ := m.Version()
	logger.Info("database_migrations_applied", zap.Uint("schema_version", version))
	return nil
}

// SchemaVersion reports the applied migration version; zero when nothing ran yet.
func SchemaVersion(primaryDSN string) (uint, bool, error) {
	m, err := newMigrator(primaryDSN)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
