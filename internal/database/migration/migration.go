package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var migrations embed.FS

// dialects maps the configured driver to the goose dialect and the embedded directory.
var dialects = map[string]struct {
	goose goose.Dialect
	dir   string
}{
	"postgres": {goose: goose.DialectPostgres, dir: "sql/postgres"},
	"sqlite":   {goose: goose.DialectSQLite3, dir: "sql/sqlite"},
}

// EnsureMigrated applies every pending migration for driver and logs each stage.
// Each call builds its own goose provider, so nothing is shared between databases.
func EnsureMigrated(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	start := time.Now()
	log := logger.With(zap.String("component", "database"), zap.String("driver", driver))

	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("unsupported migration driver %q", driver)
	}
	fsys, err := fs.Sub(migrations, d.dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	before, err := provider.GetDBVersion(ctx)
	if err != nil {
		log.Error("db_migration_failed", zap.String("status", "error"), zap.Error(err))
		return fmt.Errorf("read schema version: %w", err)
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int64("version", before))

	results, err := provider.Up(ctx)
	for _, r := range results {
		if r.Error != nil || r.Source == nil {
			continue
		}
		log.Info("db_migration_applied",
			zap.Int64("version", r.Source.Version),
			zap.String("path", r.Source.Path),
			zap.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	event := "db_migration_success"
	if after == before {
		event = "db_migration_skip"
	}
	log.Info(event,
		zap.String("status", "success"),
		zap.Int64("version", after),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
