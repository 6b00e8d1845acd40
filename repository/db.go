package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the database and wraps it in a bun.DB with the dialect
// matching driver.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case "", DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// in memory databases are per connection
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case DriverPostgres:
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// EnableQueryLog prints every query to stderr. With verbose false only
// failed queries are printed.
func EnableQueryLog(db *bun.DB, verbose bool) {
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(verbose),
		bundebug.WithEnabled(true),
	))
}

// Migrate creates the tables that do not exist yet
func Migrate(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}
