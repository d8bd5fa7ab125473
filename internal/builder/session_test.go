package builder

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/generation"
	"github.com/tgdscott/DoneCast-sub013/internal/publish"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/testsupport"
)

func newAPI(t *testing.T) *testsupport.FakeSitesAPI {
	t.Helper()
	raw, err := sections.EncodeCatalog(sections.DefaultCatalog())
	if err != nil {
		t.Fatalf("encode catalog: %v", err)
	}
	api := testsupport.NewFakeSitesAPI()
	api.Definitions = raw
	return api
}

func mounted(t *testing.T, api *testsupport.FakeSitesAPI, opts Options) *Session {
	t.Helper()
	session, err := New("pod-1", api, opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	if err := session.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return session
}

func withSite(api *testsupport.FakeSitesAPI, state sites.SectionState) {
	api.Site = &sites.Website{ID: uuid.New(), PodcastID: "pod-1", Status: domain.StatusDraft, Subdomain: "pod-1"}
	api.Sections = state.Clone()
}

func TestAddSectionToEmptySite(t *testing.T) {
	api := newAPI(t)
	session := mounted(t, api, Options{})
	if session.Website() != nil || session.Store().Len() != 0 {
		t.Fatalf("expected empty draft after 404")
	}

	if err := session.AddSection(context.Background(), "hero"); err != nil {
		t.Fatalf("add: %v", err)
	}
	store := session.Store()
	if !store.Enabled("hero") {
		t.Fatalf("expected hero enabled")
	}
	if !reflect.DeepEqual(store.Order(), []string{"hero"}) {
		t.Fatalf("unexpected order %v", store.Order())
	}
	cfg, _ := store.Config("hero")
	if cfg["cta_text"] != "Listen now" || cfg["layout"] != "centered" {
		t.Fatalf("expected definition defaults, got %v", cfg)
	}
	if api.CallCount("PatchSections") != 1 {
		t.Fatalf("expected one PATCH sections, got %v", api.Calls())
	}

	if err := session.AddSection(context.Background(), "hero"); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if api.CallCount("PatchSections") != 1 || store.Len() != 1 {
		t.Fatalf("expected duplicate add to be a no-op, got %v", api.Calls())
	}
}

func TestAddSectionKeepsFooterLast(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{
		Order:   []string{"header", "hero", "footer"},
		Enabled: map[string]bool{"header": true, "hero": true, "footer": true},
	})
	session := mounted(t, api, Options{})
	if err := session.AddSection(context.Background(), "faq"); err != nil {
		t.Fatalf("add: %v", err)
	}
	want := []string{"header", "hero", "faq", "footer"}
	if got := session.Store().Order(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order %v", got)
	}
	if !reflect.DeepEqual(api.Sections.Order, want) {
		t.Fatalf("server received %v", api.Sections.Order)
	}
}

func TestAddUnknownSection(t *testing.T) {
	api := newAPI(t)
	session := mounted(t, api, Options{})
	if err := session.AddSection(context.Background(), "guestbook"); !errors.Is(err, ErrUnknownDefinition) {
		t.Fatalf("expected ErrUnknownDefinition, got %v", err)
	}
}

func TestToggleRollbackSendsNotice(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero", "faq"}, Enabled: map[string]bool{"hero": true, "faq": true}})
	session := mounted(t, api, Options{})

	var notices []events.Notice
	sub := session.Bus().Subscribe(events.NameNotice, func(evt events.Event) {
		notices = append(notices, evt.Payload.(events.Notice))
	})
	defer sub.Unsubscribe()

	api.Fail("PatchToggle", &sites.APIError{Status: 500, Kind: sites.ErrTransient})
	if err := session.Toggle(context.Background(), "faq", false); !errors.Is(err, sites.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !session.Store().Enabled("faq") {
		t.Fatalf("expected toggle rolled back")
	}
	if len(notices) != 1 || notices[0].SectionID != "faq" {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func waitInFlight(t *testing.T, session *Session, key string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for session.reconciler.InFlight(key) < want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := session.reconciler.InFlight(key); got != want {
		t.Fatalf("expected %d mutations on %s, got %d", want, key, got)
	}
}

func TestAddSectionNeverSendsUnconfirmedToggle(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{
		Order:   []string{"hero", "about"},
		Enabled: map[string]bool{"hero": true, "about": true},
	})
	session := mounted(t, api, Options{})

	toggleEntered := make(chan struct{})
	releaseToggle := make(chan struct{})
	api.Hook = func(ctx context.Context, method string) error {
		if method != "PatchToggle" {
			return nil
		}
		close(toggleEntered)
		<-releaseToggle
		return &sites.APIError{Status: 503, Kind: sites.ErrTransient}
	}

	toggleErr := make(chan error, 1)
	go func() { toggleErr <- session.Toggle(context.Background(), "hero", false) }()
	<-toggleEntered

	addErr := make(chan error, 1)
	go func() { addErr <- session.AddSection(context.Background(), "faq") }()
	waitInFlight(t, session, "faq", 1)
	if api.CallCount("PatchSections") != 0 {
		t.Fatalf("expected add to wait for the pending toggle, got %v", api.Calls())
	}
	close(releaseToggle)

	if err := <-toggleErr; !errors.Is(err, sites.ErrTransient) {
		t.Fatalf("expected toggle failure, got %v", err)
	}
	if err := <-addErr; err != nil {
		t.Fatalf("add: %v", err)
	}
	if !api.Sections.Enabled["hero"] {
		t.Fatalf("failed toggle reached the server through the add: %+v", api.Sections)
	}
	if !session.Store().Enabled("hero") {
		t.Fatalf("expected hero enabled locally after rollback")
	}
	want := []string{"hero", "about", "faq"}
	if !reflect.DeepEqual(api.Sections.Order, want) || !reflect.DeepEqual(session.Store().Order(), want) {
		t.Fatalf("expected %v on both sides, server %v local %v", want, api.Sections.Order, session.Store().Order())
	}
}

func TestToggleResponseKeepsPendingReorder(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{
		Order:   []string{"hero", "about", "faq"},
		Enabled: map[string]bool{"hero": true, "about": true, "faq": true},
	})
	session := mounted(t, api, Options{})

	orderEntered := make(chan struct{})
	releaseOrder := make(chan struct{})
	api.Hook = func(ctx context.Context, method string) error {
		if method != "PatchOrder" {
			return nil
		}
		close(orderEntered)
		<-releaseOrder
		return nil
	}

	reordered := []string{"faq", "hero", "about"}
	orderErr := make(chan error, 1)
	go func() { orderErr <- session.ReorderSections(context.Background(), reordered) }()
	<-orderEntered

	if err := session.Toggle(context.Background(), "about", false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := session.Store().Order(); !reflect.DeepEqual(got, reordered) {
		t.Fatalf("toggle response overwrote the pending order: %v", got)
	}
	if session.Store().Enabled("about") {
		t.Fatalf("expected canonical toggle applied")
	}

	close(releaseOrder)
	if err := <-orderErr; err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := session.Store().Order(); !reflect.DeepEqual(got, reordered) {
		t.Fatalf("order %v, want %v", got, reordered)
	}
	if !reflect.DeepEqual(api.Sections.Order, reordered) {
		t.Fatalf("server order %v, want %v", api.Sections.Order, reordered)
	}
}

func TestGenerationAndPublishExcludeEachOther(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	session := mounted(t, api, Options{})

	var warnings int
	sub := session.Bus().Subscribe(events.NameNotice, func(evt events.Event) {
		if evt.Payload.(events.Notice).Severity == events.SeverityWarning {
			warnings++
		}
	})
	defer sub.Unsubscribe()

	entered := make(chan struct{})
	release := make(chan struct{})
	api.Hook = func(ctx context.Context, method string) error {
		if method != "GenerateWebsite" && method != "Publish" {
			return nil
		}
		entered <- struct{}{}
		<-release
		return nil
	}

	generated := make(chan error, 1)
	go func() { generated <- session.Generate(context.Background()) }()
	<-entered
	if err := session.Publish(context.Background(), false); !errors.Is(err, publish.ErrBusy) {
		t.Fatalf("expected publish to be refused during generation, got %v", err)
	}
	if err := session.Reset(context.Background(), sites.DefaultConfirmationPhrase); !errors.Is(err, publish.ErrBusy) {
		t.Fatalf("expected reset to be refused during generation, got %v", err)
	}
	release <- struct{}{}
	if err := <-generated; err != nil {
		t.Fatalf("generate: %v", err)
	}

	published := make(chan error, 1)
	go func() { published <- session.Publish(context.Background(), false) }()
	<-entered
	if err := session.Regenerate(context.Background()); !errors.Is(err, generation.ErrBusy) {
		t.Fatalf("expected regenerate to be refused during publish, got %v", err)
	}
	release <- struct{}{}
	if err := <-published; err != nil {
		t.Fatalf("publish: %v", err)
	}
	if warnings != 3 {
		t.Fatalf("expected a warning per refused operation, got %d", warnings)
	}
	if api.CallCount("Reset") != 0 || api.CallCount("GenerateWebsite") != 1 {
		t.Fatalf("unexpected calls %v", api.Calls())
	}
}

func TestDeleteSection(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero", "faq"}, Enabled: map[string]bool{"hero": true, "faq": true}})
	session := mounted(t, api, Options{})

	if err := session.DeleteSection(context.Background(), "faq"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if session.Store().Has("faq") || !reflect.DeepEqual(api.Sections.Order, []string{"hero"}) {
		t.Fatalf("expected faq removed locally and remotely")
	}
	if err := session.DeleteSection(context.Background(), "faq"); !errors.Is(err, drafts.ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestMoveDownScenario(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero", "faq", "footer"}})
	session := mounted(t, api, Options{})
	if err := session.MoveDown(context.Background(), 0); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if got := session.Store().Order(); !reflect.DeepEqual(got, []string{"faq", "hero", "footer"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestCloseCancelsInFlightWork(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	session := mounted(t, api, Options{})

	entered := make(chan struct{})
	api.Hook = func(ctx context.Context, method string) error {
		if method != "PatchToggle" {
			return nil
		}
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() { done <- session.Toggle(context.Background(), "hero", false) }()
	<-entered

	var notices int
	sub := session.Bus().Subscribe(events.NameNotice, func(events.Event) { notices++ })
	defer sub.Unsubscribe()

	_ = session.Close()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("toggle did not return after close")
	}
	if notices != 0 {
		t.Fatalf("expected no notices after teardown, got %d", notices)
	}
	if err := session.Generate(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRequestPreviewIsDebounced(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	api.Snapshot = &sites.PreviewSnapshot{GlobalCSS: "x"}
	session := mounted(t, api, Options{PreviewDelay: 10 * time.Millisecond})

	updated := make(chan events.PreviewUpdated, 4)
	sub := session.Bus().Subscribe(events.NamePreviewUpdated, func(evt events.Event) {
		updated <- evt.Payload.(events.PreviewUpdated)
	})
	defer sub.Unsubscribe()

	for range 3 {
		session.RequestPreview()
	}
	select {
	case evt := <-updated:
		if evt.Approximate || evt.Snapshot == nil || evt.Snapshot.GlobalCSS != "x" {
			t.Fatalf("unexpected preview %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("preview was not refreshed")
	}
	time.Sleep(30 * time.Millisecond)
	if api.CallCount("Preview") != 1 {
		t.Fatalf("expected one preview fetch, got %d", api.CallCount("Preview"))
	}
}

func TestPlayEpisodePublishesUntilClosed(t *testing.T) {
	api := newAPI(t)
	session := mounted(t, api, Options{})
	var plays []events.EpisodePlay
	sub := session.Bus().Subscribe(events.NameEpisodePlay, func(evt events.Event) {
		plays = append(plays, evt.Payload.(events.EpisodePlay))
	})
	defer sub.Unsubscribe()

	session.PlayEpisode("ep-1", 12.5)
	_ = session.Close()
	session.PlayEpisode("ep-2", 0)
	if len(plays) != 1 || plays[0].EpisodeID != "ep-1" || plays[0].StartAt != 12.5 {
		t.Fatalf("unexpected plays %+v", plays)
	}
}

func TestMountLoadsExistingWebsite(t *testing.T) {
	api := newAPI(t)
	withSite(api, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	session := mounted(t, api, Options{})
	if session.Website() == nil || session.Website().Status != domain.StatusDraft {
		t.Fatalf("expected draft website, got %+v", session.Website())
	}
	if len(session.Definitions()) == 0 {
		t.Fatalf("expected catalog loaded")
	}
}

func TestMountForbiddenIsReported(t *testing.T) {
	api := newAPI(t)
	api.Fail("GetWebsite", &sites.APIError{Status: 403, Kind: sites.ErrForbidden})
	session, err := New("pod-1", api, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer session.Close()
	if err := session.Mount(context.Background()); !errors.Is(err, sites.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
