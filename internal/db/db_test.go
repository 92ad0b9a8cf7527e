package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutrabajo/apiserver/config"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Database: config.DatabaseConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "jobboard.db"),
		},
	}
}

func tableNames(t *testing.T, cfg config.Config) []string {
	t.Helper()

	conn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	rows, err := conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'jobs', 'cvs') ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestMigrateUpAndDownSQLite(t *testing.T) {
	t.Parallel()

	cfg := sqliteConfig(t)

	require.NoError(t, MigrateUp(cfg.Database))
	require.Equal(t, []string{"cvs", "jobs", "users"}, tableNames(t, cfg))

	// Re-running is a no-op.
	require.NoError(t, MigrateUp(cfg.Database))

	require.NoError(t, MigrateDown(cfg.Database, 0))
	require.Empty(t, tableNames(t, cfg))
}

func TestOpenSQLiteEnforcesForeignKeys(t *testing.T) {
	t.Parallel()

	cfg := sqliteConfig(t)
	require.NoError(t, MigrateUp(cfg.Database))

	conn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`INSERT INTO cvs (id, user_id, filename, content) VALUES ('c1', 'missing', 'cv.pdf', 'x')`)
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.Config{
		Database: config.DatabaseConfig{Driver: "oracle"},
	})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestDriver(t *testing.T) {
	t.Parallel()

	require.Equal(t, DriverPostgres, Driver(config.DatabaseConfig{}))
	require.Equal(t, DriverPostgres, Driver(config.DatabaseConfig{Driver: "PostgreSQL"}))
	require.Equal(t, DriverPgx, Driver(config.DatabaseConfig{Driver: "pgx/v5"}))
	require.Equal(t, DriverSQLite, Driver(config.DatabaseConfig{Driver: "sqlite3"}))
}

func TestPostgresURL(t *testing.T) {
	t.Parallel()

	got := PostgresURL(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "jobboard",
		Password: "p@ss",
		DBName:   "jobs",
		UseSSL:   true,
	})
	require.Equal(t, "postgres://jobboard:p%40ss@db:5433/jobs?sslmode=require", got)
}
