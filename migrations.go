package sitebuilder

import (
	"context"
	"embed"

	"github.com/uptrace/bun"

	"github.com/tgdscott/DoneCast-sub013/internal/migrations"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

const migrationsRoot = "data/sql/migrations"

// GetMigrationsFS returns the embedded migration files for this package.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// Migrate applies the embedded schema migrations for db's dialect.
func Migrate(ctx context.Context, db *bun.DB, logger interfaces.Logger) ([]string, error) {
	runner, err := migrations.NewRunner(db, migrationsFS, migrationsRoot, migrations.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return runner.Migrate(ctx)
}

// Rollback reverts the most recent migration group.
func Rollback(ctx context.Context, db *bun.DB, logger interfaces.Logger) ([]string, error) {
	runner, err := migrations.NewRunner(db, migrationsFS, migrationsRoot, migrations.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return runner.Rollback(ctx)
}
