// Package migrations applies the embedded SQL schema with bun's migrator.
// Files are grouped per dialect ("postgres", "sqlite") and follow bun's
// <timestamp>_<name>.{up,down}.sql convention.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"

	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const (
	tableName      = "sitebuilder_migrations"
	locksTableName = "sitebuilder_migration_locks"
)

var ErrDatabaseRequired = errors.New("migrations: database required")

// Runner applies migrations from one filesystem.
type Runner struct {
	db       *bun.DB
	migrator *migrate.Migrator
	logger   interfaces.Logger
}

type Option func(*Runner)

func WithLogger(logger interfaces.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// DialectDir names the subdirectory holding migrations for db.
func DialectDir(db *bun.DB) string {
	if db.Dialect().Name() == dialect.SQLite {
		return "sqlite"
	}
	return "postgres"
}

// NewRunner discovers the migrations of db's dialect under root in fsys.
func NewRunner(db *bun.DB, fsys fs.FS, root string, opts ...Option) (*Runner, error) {
	if db == nil {
		return nil, ErrDatabaseRequired
	}
	sub, err := fs.Sub(fsys, root+"/"+DialectDir(db))
	if err != nil {
		return nil, fmt.Errorf("migrations: open %s: %w", root, err)
	}
	set := migrate.NewMigrations()
	if err := set.Discover(sub); err != nil {
		return nil, fmt.Errorf("migrations: discover: %w", err)
	}
	r := &Runner{
		db: db,
		migrator: migrate.NewMigrator(db, set,
			migrate.WithTableName(tableName),
			migrate.WithLocksTableName(locksTableName),
		),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Migrate applies every pending migration and returns their names.
func (r *Runner) Migrate(ctx context.Context) ([]string, error) {
	if err := r.migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	group, err := r.migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: migrate: %w", err)
	}
	if group.IsZero() {
		r.logger.Debug("migrations.up.noop")
		return nil, nil
	}
	names := migrationNames(group.Migrations)
	r.logger.Info("migrations.up", "group", group.ID, "applied", names)
	return names, nil
}

// Rollback reverts the last applied group.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	group, err := r.migrator.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: rollback: %w", err)
	}
	if group.IsZero() {
		return nil, nil
	}
	names := migrationNames(group.Migrations)
	r.logger.Info("migrations.down", "group", group.ID, "reverted", names)
	return names, nil
}

// Pending lists migrations not applied yet.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	if err := r.migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	all, err := r.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: status: %w", err)
	}
	return migrationNames(all.Unapplied()), nil
}

func migrationNames(ms migrate.MigrationSlice) []string {
	names := make([]string, 0, len(ms))
	for _, m := range ms {
		names = append(names, m.Name)
	}
	return names
}
