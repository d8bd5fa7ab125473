package publish

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/testsupport"
)

func draftSite() *sites.Website {
	return &sites.Website{ID: uuid.New(), PodcastID: "pod-1", Status: domain.StatusDraft, Subdomain: "pod-1"}
}

func seeded(t *testing.T, state sites.SectionState) (*drafts.Store, *testsupport.FakeSitesAPI) {
	t.Helper()
	store := drafts.NewStore()
	website := draftSite()
	if err := store.ReplaceAll(website, state); err != nil {
		t.Fatalf("seed: %v", err)
	}
	api := testsupport.NewFakeSitesAPI()
	api.Site = website.Clone()
	api.Sections = state.Clone()
	api.Defaults = sites.SectionState{
		Order:   []string{"hero", "footer"},
		Enabled: map[string]bool{"hero": true, "footer": true},
		Config:  map[string]map[string]any{"hero": {"title": "Default"}},
	}
	return store, api
}

func TestPublishEmptyDraftIsRejectedLocally(t *testing.T) {
	store, api := seeded(t, sites.SectionState{})
	c := New(store, api, "pod-1")
	if err := c.Publish(context.Background(), false); !errors.Is(err, ErrEmptySite) {
		t.Fatalf("expected ErrEmptySite, got %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("expected no network call, got %v", api.Calls())
	}
}

func TestPublishRequiresAnEnabledSection(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": false}})
	c := New(store, api, "pod-1")
	if err := c.Publish(context.Background(), false); !errors.Is(err, ErrEmptySite) {
		t.Fatalf("expected ErrEmptySite, got %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("expected no network call, got %v", api.Calls())
	}
}

func recordNotices(notices *[]events.Notice) Option {
	return WithNotifier(events.NotifierFunc(func(n events.Notice) {
		*notices = append(*notices, n)
	}))
}

func TestPublishWithoutWebsite(t *testing.T) {
	store := drafts.NewStore()
	api := testsupport.NewFakeSitesAPI()
	var notices []events.Notice
	c := New(store, api, "pod-1", recordNotices(&notices))
	if err := c.Publish(context.Background(), false); !errors.Is(err, ErrEmptySite) {
		t.Fatalf("expected ErrEmptySite, got %v", err)
	}
	if err := c.Publish(context.Background(), true); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("expected no network call, got %v", api.Calls())
	}
	if len(notices) != 2 {
		t.Fatalf("expected a warning per rejection, got %+v", notices)
	}
	if !errors.Is(notices[0].Err, ErrEmptySite) || !errors.Is(notices[1].Err, ErrInvalidTransition) {
		t.Fatalf("unexpected notices %+v", notices)
	}
	for _, notice := range notices {
		if notice.Severity != events.SeverityWarning || notice.Message == "" {
			t.Fatalf("expected user-facing warning, got %+v", notice)
		}
	}
}

func TestPublishAndResetRespectSharedLatch(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	latch := &sites.Latch{}
	var notices []events.Notice
	c := New(store, api, "pod-1", WithLatch(latch), recordNotices(&notices))

	release, _, _ := latch.TryAcquire("generating")
	if err := c.Publish(context.Background(), false); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while generating, got %v", err)
	}
	if err := c.Reset(context.Background(), DefaultConfirmationPhrase); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while generating, got %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("expected no requests, got %v", api.Calls())
	}
	if len(notices) != 2 || notices[0].Severity != events.SeverityWarning {
		t.Fatalf("expected two busy warnings, got %+v", notices)
	}
	release()

	if err := c.Publish(context.Background(), false); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if latch.Holder() != "" {
		t.Fatalf("expected latch released, held by %q", latch.Holder())
	}
}

func TestPublishThenUnpublishReloads(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	var changes []string
	bus := events.NewBus()
	sub := bus.Subscribe(events.NameWebsiteChanged, func(evt events.Event) {
		changes = append(changes, evt.Payload.(events.WebsiteChanged).Operation)
	})
	defer sub.Unsubscribe()
	c := New(store, api, "pod-1", WithPublisher(bus))

	if err := c.Publish(context.Background(), true); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected unpublish of a draft to be rejected, got %v", err)
	}
	if err := c.Publish(context.Background(), false); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if c.Status() != domain.StatusPublished {
		t.Fatalf("expected published, got %s", c.Status())
	}
	want := []string{"Publish", "GetWebsite", "GetSections"}
	if got := api.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected calls %v", got)
	}

	if err := c.Publish(context.Background(), true); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if c.Status() != domain.StatusDraft {
		t.Fatalf("expected draft, got %s", c.Status())
	}
	if !reflect.DeepEqual(changes, []string{"publish", "reload", "unpublish", "reload"}) {
		t.Fatalf("unexpected events %v", changes)
	}
}

func TestResetWithWrongPhraseSendsNothing(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"faq"}, Enabled: map[string]bool{"faq": true}})
	before := store.State()
	var notices []events.Notice
	c := New(store, api, "pod-1", recordNotices(&notices))

	phrases := []string{"wrong", "Here comes the boom", " here comes the boom", ""}
	for _, phrase := range phrases {
		if err := c.Reset(context.Background(), phrase); !errors.Is(err, ErrConfirmationMismatch) {
			t.Fatalf("Reset(%q): expected ErrConfirmationMismatch, got %v", phrase, err)
		}
	}
	if len(notices) != len(phrases) || notices[0].Severity != events.SeverityWarning {
		t.Fatalf("expected a warning per mismatch, got %+v", notices)
	}
	if len(api.Calls()) != 0 {
		t.Fatalf("expected no requests, got %v", api.Calls())
	}
	if !reflect.DeepEqual(store.State(), before) {
		t.Fatalf("expected store untouched")
	}
}

func TestResetWithPhraseReplacesEverything(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"faq"}, Enabled: map[string]bool{"faq": true}})
	oldID := store.Website().ID
	c := New(store, api, "pod-1")

	if err := c.Reset(context.Background(), "here comes the boom"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	website := store.Website()
	if website.ID == oldID || website.Status != domain.StatusDraft {
		t.Fatalf("expected a fresh draft website, got %+v", website)
	}
	want := api.Defaults.Clone()
	if !reflect.DeepEqual(store.State(), want) {
		t.Fatalf("expected default sections\nwant %#v\ngot  %#v", want, store.State())
	}
	if got := api.Calls(); !reflect.DeepEqual(got, []string{"Reset", "GetWebsite", "GetSections"}) {
		t.Fatalf("unexpected calls %v", got)
	}
}

func TestCustomConfirmationPhrase(t *testing.T) {
	store, api := seeded(t, sites.SectionState{})
	c := New(store, api, "pod-1", WithConfirmationPhrase("delete it"))
	if err := c.Reset(context.Background(), DefaultConfirmationPhrase); !errors.Is(err, ErrConfirmationMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := c.Reset(context.Background(), "delete it"); err != nil {
		t.Fatalf("reset: %v", err)
	}
}

func TestReloadFailureAfterPublish(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	api.Fail("GetSections", &sites.APIError{Status: 503, Kind: sites.ErrTransient})
	var notices []events.Notice
	c := New(store, api, "pod-1", WithNotifier(events.NotifierFunc(func(n events.Notice) {
		notices = append(notices, n)
	})))

	err := c.Publish(context.Background(), false)
	if !errors.Is(err, ErrReloadFailed) || !errors.Is(err, sites.ErrTransient) {
		t.Fatalf("expected reload failure, got %v", err)
	}
	var reloadErr *ReloadError
	if !errors.As(err, &reloadErr) || reloadErr.Operation != "publish" {
		t.Fatalf("expected *ReloadError for publish, got %#v", err)
	}
	if c.Status() != domain.StatusPublished {
		t.Fatalf("expected publish response applied, got %s", c.Status())
	}
	if len(notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(notices))
	}
}

func TestPublishServerFailureKeepsStatus(t *testing.T) {
	store, api := seeded(t, sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}})
	api.Fail("Publish", &sites.APIError{Status: 403, Kind: sites.ErrForbidden})
	var notices []events.Notice
	c := New(store, api, "pod-1", WithNotifier(events.NotifierFunc(func(n events.Notice) {
		notices = append(notices, n)
	})))
	if err := c.Publish(context.Background(), false); !errors.Is(err, sites.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if c.Status() != domain.StatusDraft {
		t.Fatalf("expected draft status, got %s", c.Status())
	}
	if len(notices) != 1 || notices[0].Message != sites.Describe(&sites.APIError{Kind: sites.ErrForbidden}) {
		t.Fatalf("unexpected notices %+v", notices)
	}
}
