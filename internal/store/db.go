package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DB wraps sql.DB together with the SQL dialect of its driver.
type DB struct {
	Client  *sql.DB
	Dialect Dialect
}

// NewDB opens a pool for driver ("pgx", "mysql" or "sqlite3") and pings it.
func NewDB(ctx context.Context, driver, connString string, opts Options) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		if connString, err = sqliteDSN(connString); err != nil {
			return nil, err
		}
		// One writer at a time; also keeps ":memory:" on a single database.
		opts.MaxOpenConns = 1
	}
	db, err := sql.Open(dialect.Name, connString)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.MaxLifetime)

	d := &DB{Client: db, Dialect: dialect}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return d, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return d, nil
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return fmt.Errorf("store: not connected")
	}
	return d.Client.PingContext(ctx)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
