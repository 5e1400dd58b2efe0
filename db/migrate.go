// Package db embeds the schema migrations and applies them with
// golang-migrate. The serve command and the test harness both go
// through Migrate so every environment runs the same schema.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration, in order. Already-applied
// versions are skipped via the schema_migrations table.
//
// connURL is a postgres:// or postgresql:// connection URL.
func Migrate(connURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	dbURL, err := migrateURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			slog.Warn("closing migration source", "error", srcErr)
		}
		if dbErr != nil {
			slog.Warn("closing migration connection", "error", dbErr)
		}
	}()

	if err := ensureClean(m); err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("schema already up to date")
			return nil
		}
		if v, dirty, verr := m.Version(); verr == nil && dirty {
			slog.Error("migration left the schema dirty",
				"version", v,
				"hint", fmt.Sprintf("fix the migration, then: migrate force %d", v))
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if v, dirty, err := m.Version(); err == nil {
		slog.Info("migrations applied", "version", v, "dirty", dirty)
	}
	return nil
}

// ensureClean refuses to run on a schema a previous migration left
// half-applied. golang-migrate would refuse too; failing here gives the
// operator an actionable message instead.
func ensureClean(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		slog.Error("schema is dirty from an earlier failed migration",
			"version", version,
			"hint", fmt.Sprintf("inspect the schema, then: migrate force %d", version))
		return fmt.Errorf("schema dirty at version %d, manual cleanup required", version)
	}
	return nil
}

// migrateURL rewrites the connection URL scheme to pgx5 so golang-migrate
// selects its pgx v5 driver.
func migrateURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}
}
