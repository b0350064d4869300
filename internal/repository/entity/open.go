package entity

import (
	"context"
	"database/sql"
	"fmt"

	// sqlite drivers: "sqlite" is pure Go, "sqlite3" needs cgo.
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Drivers lists the database/sql driver names this package registers.
var Drivers = []string{"sqlite", "sqlite3"}

// Open opens the authoritative database and verifies the connection.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*sql.DB, error) {
	if driver == "" {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return db, nil
}
