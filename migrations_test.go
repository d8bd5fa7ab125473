package sitebuilder_test

import (
	"context"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	sitebuilder "github.com/tgdscott/DoneCast-sub013"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/websites"
	"github.com/tgdscott/DoneCast-sub013/pkg/testsupport"
)

func newDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmbeddedMigrationsApplyAndRollback(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	applied, err := sitebuilder.Migrate(ctx, db, logging.NoOp())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected embedded migrations to apply")
	}
	again, err := sitebuilder.Migrate(ctx, db, logging.NoOp())
	if err != nil || len(again) != 0 {
		t.Fatalf("expected no-op second run, got %v / %v", again, err)
	}

	repo := websites.NewBunRepository(db)
	svc := websites.NewService(repo, websites.WithPodcasts(websites.NewMemoryPodcastSource(
		websites.Podcast{ID: "pod-1", Title: "Migrated Show"},
	)))
	if _, err := svc.Generate(ctx, "pod-1", false); err != nil {
		t.Fatalf("generate over migrated schema: %v", err)
	}

	rolled, err := sitebuilder.Rollback(ctx, db, logging.NoOp())
	if err != nil || len(rolled) == 0 {
		t.Fatalf("rollback: %v / %v", rolled, err)
	}
	var count int
	err = db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'sitebuilder_websites'").Scan(ctx, &count)
	if err != nil || count != 0 {
		t.Fatalf("expected websites table dropped, got %d / %v", count, err)
	}
}

func TestModuleBootstrapsEmbeddedSchema(t *testing.T) {
	cfg := sitebuilder.DefaultConfig()
	cfg.Features.Logger = false
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = "file:module_bootstrap?mode=memory&cache=shared"

	module, err := sitebuilder.New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = module.Close() })
	ctx := context.Background()
	if err := module.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	svc, err := module.Websites()
	if err != nil {
		t.Fatalf("websites: %v", err)
	}
	bundle, err := svc.Generate(ctx, "pod-9", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bundle.Website.Subdomain != "pod-9" {
		t.Fatalf("unexpected subdomain %q", bundle.Website.Subdomain)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := sitebuilder.LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("unexpected driver %q", cfg.Storage.Driver)
	}
}
