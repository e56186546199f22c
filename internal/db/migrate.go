package db

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func prepare() error {
	goose.SetBaseFS(migrations)
	return goose.SetDialect("postgres")
}

// Migrate applies every pending embedded migration.
func Migrate(db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return goose.Down(db, migrationsDir)
}

func MigrationStatus(db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return goose.Status(db, migrationsDir)
}
