package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"acceptapi/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: "5432", User: "accept", Name: "acceptance"}

	with := func(mut func(*config.DatabaseConfig)) config.DatabaseConfig {
		c := base
		mut(&c)
		return c
	}

	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{"minimal", base, "postgres://accept@db:5432/acceptance"},
		{"sslmode", with(func(c *config.DatabaseConfig) { c.SSLMode = "require" }), "postgres://accept@db:5432/acceptance?sslmode=require"},
		{"password is escaped", with(func(c *config.DatabaseConfig) { c.Password = "p@ss/w:rd" }), "postgres://accept:p%40ss%2Fw%3Ard@db:5432/acceptance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPostgresDSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, field := range []string{"host", "port", "user", "name"} {
		t.Run("missing "+field, func(t *testing.T) {
			c := with(func(c *config.DatabaseConfig) {
				switch field {
				case "host":
					c.Host = ""
				case "port":
					c.Port = ""
				case "user":
					c.User = ""
				case "name":
					c.Name = ""
				}
			})
			_, err := BuildPostgresDSN(c)
			assert.Error(t, err)
		})
	}
}

func TestNewPostgres(t *testing.T) {
	conf := config.DatabaseConfig{
		Host:               "localhost",
		Port:               "5432",
		User:               "user",
		Password:           "pass",
		Name:               "dbname",
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetimeSec: 300,
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		// Mock sqlOpen to return the mock db
		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return db, nil
		}
		defer func() { sqlOpen = origSqlOpen }()

		mock.ExpectPing()

		gotDB, err := NewPostgres(conf)
		assert.NoError(t, err)
		assert.NotNil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sqlOpen error", func(t *testing.T) {
		// Mock sqlOpen to return error
		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return nil, errors.New("open error")
		}
		defer func() { sqlOpen = origSqlOpen }()

		gotDB, err := NewPostgres(conf)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sql open: open error")
		assert.Nil(t, gotDB)
	})

	t.Run("ping error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		// No need to defer db.Close() because NewPostgres should close it on ping error

		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return db, nil
		}
		defer func() { sqlOpen = origSqlOpen }()

		mock.ExpectPing().WillReturnError(errors.New("ping failed"))

		gotDB, err := NewPostgres(conf)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "db ping: ping failed")
		assert.Nil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid DSN", func(t *testing.T) {
		invalidConf := config.DatabaseConfig{} // missing host etc
		gotDB, err := NewPostgres(invalidConf)
		assert.Error(t, err)
		assert.Nil(t, gotDB)
	})
}

func TestNewSQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("in memory", func(t *testing.T) {
		db, err := NewSQLite(ctx, ":memory:")
		require.NoError(t, err)
		defer db.Close()

		var fk int
		require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
	})

	t.Run("every pooled connection", func(t *testing.T) {
		db, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "accept.db"))
		require.NoError(t, err)
		defer db.Close()

		// hold both connections at once so the pool has to dial a second one
		c1, err := db.Conn(ctx)
		require.NoError(t, err)
		defer c1.Close()
		c2, err := db.Conn(ctx)
		require.NoError(t, err)
		defer c2.Close()

		for i, c := range []*sql.Conn{c1, c2} {
			var fk, timeout int
			require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
			require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
			assert.Equal(t, 1, fk, "conn %d", i)
			assert.Equal(t, 5000, timeout, "conn %d", i)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		db, err := NewSQLite(ctx, "")
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_busy_timeout=5000&_foreign_keys=on", SQLiteDSN(":memory:"))
	assert.Equal(t, "/var/lib/accept.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		SQLiteDSN("/var/lib/accept.db"))
	assert.Equal(t, "file:accept.db?cache=shared&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		SQLiteDSN("file:accept.db?cache=shared"))
}

func TestOpen(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		db, err := Open(config.DatabaseConfig{Driver: DriverSQLite, SQLitePath: ":memory:"})
		require.NoError(t, err)
		assert.NoError(t, db.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		db, err := Open(config.DatabaseConfig{Driver: "oracle"})
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("postgres by default", func(t *testing.T) {
		db, err := Open(config.DatabaseConfig{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "host, port, user, and name are required")
		assert.Nil(t, db)
	})
}
