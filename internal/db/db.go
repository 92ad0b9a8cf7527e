package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tutrabajo/apiserver/config"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultDialTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
	sqliteBusyTimeoutMs = 5000
)

// Open connects to the configured backend and verifies it with a ping.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := open(cfg.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func open(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch Driver(cfg) {
	case DriverSQLite:
		db, err := sql.Open(DriverSQLite, SQLiteDSN(cfg.Path))
		if err != nil {
			return nil, err
		}
		// One writer at a time; the busy timeout covers the rest.
		db.SetMaxOpenConns(1)
		return db, nil

	case DriverPgx:
		pgxConfig, err := pgx.ParseConfig(PostgresURL(cfg))
		if err != nil {
			return nil, fmt.Errorf("parse pgx config: %w", err)
		}
		pgxConfig.ConnectTimeout = defaultDialTimeout
		db := stdlib.OpenDB(*pgxConfig)
		configurePool(db)
		return db, nil

	case DriverPostgres:
		db, err := sql.Open(DriverPostgres, PostgresURL(cfg))
		if err != nil {
			return nil, err
		}
		configurePool(db)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func configurePool(db *sql.DB) {
	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)
}

// Driver returns the normalised driver name of cfg.
func Driver(cfg config.DatabaseConfig) string {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "postgresql":
		return DriverPostgres
	case "pgx/v5":
		return DriverPgx
	case "sqlite3":
		return DriverSQLite
	default:
		return driver
	}
}

// PostgresURL builds a postgres:// connection URL from cfg.
func PostgresURL(cfg config.DatabaseConfig) string {
	sslmode := "disable"
	if cfg.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   cfg.DBName,
	}

	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()

	return u.String()
}

// SQLiteDSN returns a modernc sqlite DSN with foreign keys enforced.
func SQLiteDSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		path,
		sqliteBusyTimeoutMs,
	)
}
