package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending up migrations. It reports whether anything changed.
func Migrate(dsn string) (bool, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return false, err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return false, fmt.Errorf("ping: %w", err)
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return false, fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return false, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return false, err
	}
	upErr := m.Up()
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		return false, errors.Join(srcErr, dbErr)
	}
	if errors.Is(upErr, migrate.ErrNoChange) {
		return false, nil
	}
	if upErr != nil {
		return false, upErr
	}
	return true, nil
}
