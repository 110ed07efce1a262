package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"hallbooking/pkg/config"
)

// Migrate applies pending up migrations from source (e.g. file://migrations)
// and returns the resulting schema version.
func Migrate(source string, cfg config.Config) (uint, error) {
	return run(source, cfg, func(m *migrate.Migrate) error { return m.Up() })
}

// Steps moves the schema n migrations forward, or back when n is negative.
func Steps(source string, cfg config.Config, n int) (uint, error) {
	if n == 0 {
		return 0, errors.New("steps must be non-zero")
	}
	return run(source, cfg, func(m *migrate.Migrate) error { return m.Steps(n) })
}

func run(source string, cfg config.Config, apply func(*migrate.Migrate) error) (uint, error) {
	m, err := migrate.New(source, migrationConnString(cfg))
	if err != nil {
		return 0, fmt.Errorf("open migrations %s: %w", source, err)
	}
	defer func() { _, _ = m.Close() }()

	if err := apply(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty; fix it by hand and force the version", version)
	}
	return version, nil
}
