package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/go-sql-driver/mysql"

	"github.com/digkill/AIMultiverse/internal/config"
)

// mysqlDuplicateKeyName is returned when CREATE INDEX targets an existing index.
const mysqlDuplicateKeyName = 1061

// Connect opens the configured database with sensible pooling defaults.
func Connect(cfg config.Config) (*sql.DB, error) {
	return Open(cfg.DBDriver, cfg.DatabaseDSN)
}

// Open opens and pings a database for the given driver.
func Open(driver, dsn string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case config.DriverMySQL:
		dsn, err = mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetConnMaxLifetime(time.Minute * 5)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// a single writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == config.DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}

	return db, nil
}

// mysqlDSN forces UTC time parsing so DATETIME columns scan into time.Time.
func mysqlDSN(raw string) (string, error) {
	parsed, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

// Migrate runs the bootstrap schema to ensure required tables and indexes exist.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	for _, idx := range indexes {
		stmt := idx
		if driver == config.DriverSQLite {
			stmt = strings.Replace(stmt, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			var myErr *mysql.MySQLError
			if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateKeyName {
				continue
			}
			return fmt.Errorf("apply index: %w", err)
		}
	}
	return nil
}
