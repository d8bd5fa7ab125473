package preview

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/testsupport"
)

type catalog map[string]sections.Definition

func (c catalog) Lookup(id string) (sections.Definition, bool) {
	def, ok := c[id]
	return def, ok
}

func draft(t *testing.T) *drafts.Store {
	t.Helper()
	store := drafts.NewStore()
	website := &sites.Website{PodcastID: "pod-1", Subdomain: "my-show", GlobalCSS: ":root{--bg:#fff}"}
	state := sites.SectionState{
		Order:   []string{"footer", "about", "faq", "header"},
		Enabled: map[string]bool{"footer": true, "about": true, "faq": false, "header": true},
		Config: map[string]map[string]any{
			"about": {"heading": "About", "body": "Hello **listeners**"},
		},
	}
	if err := store.ReplaceAll(website, state); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestFetchPreviewPrefersServerSnapshot(t *testing.T) {
	store := draft(t)
	api := testsupport.NewFakeSitesAPI()
	api.Snapshot = &sites.PreviewSnapshot{
		Sections:  []sites.PreviewSection{{ID: "hero", Config: map[string]any{"title": "Canonical"}}},
		GlobalCSS: ":root{--bg:#000}",
		Pages:     []sites.Page{{ID: "p1", Title: "Home", IsHome: true}},
	}
	assembler := New(api, store, catalog(sections.Index(sections.DefaultCatalog())))

	got, err := assembler.FetchPreview(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Approximate || got.Source != SourceServer || got.Subdomain != "my-show" {
		t.Fatalf("unexpected preview %+v", got)
	}
	if got.Snapshot.GlobalCSS != ":root{--bg:#000}" || len(got.Snapshot.Sections) != 1 {
		t.Fatalf("expected canonical snapshot, got %+v", got.Snapshot)
	}
}

func TestFetchPreviewFallsBackOnTransientFailure(t *testing.T) {
	store := draft(t)
	api := testsupport.NewFakeSitesAPI()
	api.Snapshot = &sites.PreviewSnapshot{Pages: []sites.Page{{ID: "p1", Title: "Home"}}}

	var updates []events.PreviewUpdated
	bus := events.NewBus()
	sub := bus.Subscribe(events.NamePreviewUpdated, func(evt events.Event) {
		updates = append(updates, evt.Payload.(events.PreviewUpdated))
	})
	defer sub.Unsubscribe()

	assembler := New(api, store, catalog(sections.Index(sections.DefaultCatalog())), WithPublisher(bus))
	if _, err := assembler.FetchPreview(context.Background(), "my-show"); err != nil {
		t.Fatalf("prime: %v", err)
	}

	api.Fail("Preview", &sites.APIError{Status: 503, Kind: sites.ErrTransient})
	got, err := assembler.FetchPreview(context.Background(), "my-show")
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if !got.Approximate || got.Source != SourceLocal || !errors.Is(got.Cause, sites.ErrTransient) {
		t.Fatalf("expected approximate local preview, got %+v", got)
	}

	ids := make([]string, 0, len(got.Snapshot.Sections))
	for _, section := range got.Snapshot.Sections {
		ids = append(ids, section.ID)
	}
	if strings.Join(ids, ",") != "header,about,footer" {
		t.Fatalf("unexpected section order %v", ids)
	}
	about := got.Snapshot.Sections[1]
	if about.Label != "About" {
		t.Fatalf("expected label from catalog, got %q", about.Label)
	}
	if !strings.Contains(about.Rendered["body"], "<strong>listeners</strong>") {
		t.Fatalf("expected markdown rendering, got %q", about.Rendered["body"])
	}
	if got.Snapshot.GlobalCSS != ":root{--bg:#fff}" {
		t.Fatalf("expected draft css, got %q", got.Snapshot.GlobalCSS)
	}
	if len(got.Snapshot.Pages) != 1 {
		t.Fatalf("expected last known pages, got %+v", got.Snapshot.Pages)
	}
	if len(updates) != 2 || !updates[1].Approximate {
		t.Fatalf("unexpected events %+v", updates)
	}
}

func TestFetchPreviewDoesNotFallBackOnForbiddenOrMissing(t *testing.T) {
	for _, kind := range []error{sites.ErrForbidden, sites.ErrNotFound} {
		store := draft(t)
		api := testsupport.NewFakeSitesAPI()
		api.Fail("Preview", &sites.APIError{Kind: kind})
		assembler := New(api, store, nil)
		got, err := assembler.FetchPreview(context.Background(), "my-show")
		if !errors.Is(err, kind) || got != nil {
			t.Fatalf("expected %v without fallback, got %+v / %v", kind, got, err)
		}
	}
}

func TestFetchPreviewRequiresSubdomain(t *testing.T) {
	api := testsupport.NewFakeSitesAPI()
	assembler := New(api, drafts.NewStore(), nil)
	if _, err := assembler.FetchPreview(context.Background(), " "); !errors.Is(err, ErrNoSubdomain) {
		t.Fatalf("expected ErrNoSubdomain, got %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("expected no calls")
	}
}

func TestFetchPreviewCancelledContextIsNotApproximated(t *testing.T) {
	store := draft(t)
	api := testsupport.NewFakeSitesAPI()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api.Fail("Preview", context.Canceled)
	assembler := New(api, store, nil)
	if _, err := assembler.FetchPreview(ctx, "my-show"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
