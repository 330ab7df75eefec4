package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const fileScheme = "file://"

// migrationSource turns a directory into a golang-migrate source URL.
// Relative directories are resolved against the working directory.
func migrationSource(dir string) (string, error) {
	dir = strings.TrimPrefix(strings.TrimSpace(dir), fileScheme)
	if dir == "" {
		return "", errors.New("migrations path cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path %q: %w", dir, err)
	}
	return fileScheme + filepath.ToSlash(abs), nil
}

// RunMigrations brings the ledger schema up to the newest version in migrationsPath.
// A dirty schema is reported instead of being forced.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) (err error) {
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}
	source, err := migrationSource(migrationsPath)
	if err != nil {
		return err
	}

	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migrations at %s: %w", source, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, verErr := m.Version()
	switch {
	case errors.Is(verErr, migrate.ErrNilVersion):
		logger.Warn("Migration source holds no migrations", "source", source)
		return nil
	case verErr != nil:
		return fmt.Errorf("failed to read schema version: %w", verErr)
	case dirty:
		return fmt.Errorf("schema version %d is dirty, fix it by hand before restarting", version)
	}

	logger.Info("Ledger schema is current",
		"version", version,
		"changed", !errors.Is(upErr, migrate.ErrNoChange),
		"source", source,
	)
	return nil
}
