package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/internal/config"
)

// RunMigrations applies pending migrations when enabled in configuration.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if cfg == nil || !cfg.Migrations.Enabled {
		return nil
	}
	return Migrate(cfg, 0, logger)
}

// Migrate moves the schema by steps: zero applies everything pending, a
// negative count rolls back that many versions.
func Migrate(cfg *config.Config, steps int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	m, closeDB, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	defer m.Close()

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return verr
	}
	logger.Info("database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func newMigrator(cfg *config.Config) (*migrate.Migrate, func(), error) {
	sqlDB, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = sqlDB.Close() }

	if err := sqlDB.Ping(); err != nil {
		closeDB()
		return nil, nil, err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(cfg.Migrations.Path))
	m, err := migrate.NewWithDatabaseInstance(sourceURL, cfg.Database.Name, driver)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return m, closeDB, nil
}
