package websites

import (
	"context"
	"errors"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/identity"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/testsupport"
)

func newSQLiteRepository(t *testing.T) *BunRepository {
	t.Helper()
	sqlDB, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewBunRepository(db)
}

func sampleRecord() *Record {
	return &Record{
		ID:        identity.WebsiteUUID("pod-1", 0),
		PodcastID: "pod-1",
		Status:    domain.StatusDraft,
		Subdomain: "my-show",
		GlobalCSS: ":root{}",
		ThemeMetadata: map[string]any{
			"palette": "ember",
		},
		Sections: sites.SectionState{
			Order:   []string{"header", "hero"},
			Enabled: map[string]bool{"header": true, "hero": false},
			Config:  map[string]map[string]any{"hero": {"title": "My Show"}},
		},
	}
}

func TestBunRepositoryRoundTrip(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, sampleRecord()); !errors.Is(err, ErrDuplicateWebsite) {
		t.Fatalf("expected ErrDuplicateWebsite, got %v", err)
	}

	got, err := repo.GetByPodcast(ctx, "pod-1")
	if err != nil {
		t.Fatalf("get by podcast: %v", err)
	}
	if got.ID != created.ID || got.Sections.Config["hero"]["title"] != "My Show" || got.Sections.Enabled["hero"] {
		t.Fatalf("unexpected record %+v", got)
	}

	got.Status = domain.StatusPublished
	got.Sections.Order = []string{"hero", "header"}
	if _, err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	bySubdomain, err := repo.GetBySubdomain(ctx, "MY-SHOW")
	if err != nil {
		t.Fatalf("get by subdomain: %v", err)
	}
	if bySubdomain.Status != domain.StatusPublished || bySubdomain.Sections.Order[0] != "hero" {
		t.Fatalf("expected updated record, got %+v", bySubdomain)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByPodcast(ctx, "pod-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestServiceOverSQLite(t *testing.T) {
	repo := newSQLiteRepository(t)
	svc := NewService(repo, WithPodcasts(NewMemoryPodcastSource(Podcast{ID: "pod-1", Title: "My Show"})))
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "pod-1", false); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Reset(ctx, "pod-1", sites.DefaultConfirmationPhrase); err != nil {
		t.Fatalf("reset: %v", err)
	}
	website, err := svc.Website(ctx, "pod-1")
	if err != nil {
		t.Fatalf("website: %v", err)
	}
	if website.ID != identity.WebsiteUUID("pod-1", 1) || website.Subdomain != "my-show" {
		t.Fatalf("unexpected website after reset %+v", website)
	}
}

func TestMemoryRepositoryLookups(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	if _, err := repo.Create(ctx, sampleRecord()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, sampleRecord()); !errors.Is(err, ErrDuplicateWebsite) {
		t.Fatalf("expected ErrDuplicateWebsite, got %v", err)
	}
	got, err := repo.GetBySubdomain(ctx, " My-Show ")
	if err != nil || got.PodcastID != "pod-1" {
		t.Fatalf("expected lookup by subdomain, got %+v / %v", got, err)
	}
	got.Sections.Order[0] = "mutated"
	again, _ := repo.GetByPodcast(ctx, "pod-1")
	if again.Sections.Order[0] != "header" {
		t.Fatalf("expected stored record isolated from callers")
	}
}

func TestBunReplaceKeepsPreviousRecordWhenInsertFails(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	original, err := repo.Create(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other := sampleRecord()
	other.ID = identity.WebsiteUUID("pod-2", 0)
	other.PodcastID = "pod-2"
	other.Subdomain = "other-show"
	if _, err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	next := sampleRecord()
	next.ID = identity.WebsiteUUID("pod-1", 1)
	next.Subdomain = "other-show"
	if _, err := repo.Replace(ctx, original.ID, next); err == nil {
		t.Fatalf("expected subdomain conflict to fail the replace")
	}
	got, err := repo.GetByPodcast(ctx, "pod-1")
	if err != nil {
		t.Fatalf("expected previous website to survive, got %v", err)
	}
	if got.ID != original.ID || got.Subdomain != "my-show" {
		t.Fatalf("unexpected website after failed replace %+v", got)
	}

	next.Subdomain = "my-show"
	replaced, err := repo.Replace(ctx, original.ID, next)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ := repo.GetByPodcast(ctx, "pod-1"); got == nil || got.ID != replaced.ID {
		t.Fatalf("expected replaced website, got %+v", got)
	}
	if _, err := repo.Replace(ctx, original.ID, next); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a stale id, got %v", err)
	}
}
