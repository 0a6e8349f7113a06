package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "embed"

	_ "github.com/go-sql-driver/mysql"

	"motoshop/config"
)

//go:embed schema.sql
var schemaSQL string

// Init opens the MySQL pool and verifies connectivity. The returned
// handle is passed by injection into every controller; there is no
// package-level connection.
func Init(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

// InitSchema applies the embedded schema. Statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so it is safe to run on every start.
func InitSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
