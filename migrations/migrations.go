// Package migrations embeds the goose SQL migrations for the console schema.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Dialect maps a DB_DRIVER value onto the goose dialect name.
func Dialect(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "mysql"
}

// Run executes a goose command ("up", "down", "status", ...) against db.
func Run(db *sql.DB, driver, command string, args ...string) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(Dialect(driver)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Run(command, db, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
