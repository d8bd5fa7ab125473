package di

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/tgdscott/DoneCast-sub013/internal/migrations"
	"github.com/tgdscott/DoneCast-sub013/internal/runtimeconfig"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

func openDB(cfg runtimeconfig.StorageConfig) (*bun.DB, error) {
	switch cfg.Driver {
	case runtimeconfig.DriverSQLite:
		sqldb, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("di: open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case runtimeconfig.DriverPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("di: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("%w: %q", runtimeconfig.ErrStorageDriverUnknown, cfg.Driver)
	}
}

func runMigrations(ctx context.Context, db *bun.DB, fsys fs.FS, root string, logger interfaces.Logger) ([]string, error) {
	runner, err := migrations.NewRunner(db, fsys, root, migrations.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return runner.Migrate(ctx)
}
