package sitecmd_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/tgdscott/DoneCast-sub013/internal/commands/fixtures"
	sitecmd "github.com/tgdscott/DoneCast-sub013/internal/commands/site"
	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/testsupport"
)

type observed struct {
	messageType string
	result      any
}

func register(t *testing.T, api *testsupport.FakeSitesAPI) (*sitecmd.Handlers, *[]observed) {
	t.Helper()
	var seen []observed
	handlers, err := sitecmd.Register(api, sitecmd.RegistrationOptions{
		Observer: func(_ context.Context, messageType string, result any) {
			seen = append(seen, observed{messageType: messageType, result: result})
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return handlers, &seen
}

func TestGenerateReportsBundle(t *testing.T) {
	api := testsupport.NewFakeSitesAPI()
	api.Defaults = sites.SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"hero": true}}
	handlers, seen := register(t, api)

	if err := handlers.Generate.Execute(context.Background(), sitecmd.GenerateSiteCommand{PodcastID: "pod-1"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(*seen) != 1 || (*seen)[0].messageType != "sitebuilder.site.generate" {
		t.Fatalf("unexpected observations %+v", *seen)
	}
	bundle, ok := (*seen)[0].result.(*sites.SiteBundle)
	if !ok || bundle.Website.PodcastID != "pod-1" || len(bundle.Sections.Order) != 1 {
		t.Fatalf("unexpected result %#v", (*seen)[0].result)
	}
}

func TestInvalidMessageSkipsAPI(t *testing.T) {
	api := testsupport.NewFakeSitesAPI()
	handlers, seen := register(t, api)

	err := handlers.Publish.Execute(context.Background(), sitecmd.PublishSiteCommand{})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if len(api.Calls()) != 0 || len(*seen) != 0 {
		t.Fatalf("expected no calls, got %v", api.Calls())
	}
}

func TestAPIFailureIsCategorised(t *testing.T) {
	api := testsupport.NewFakeSitesAPI()
	api.Fail("PatchToggle", &sites.APIError{Status: 404, Kind: sites.ErrNotFound})
	handlers, seen := register(t, api)

	err := handlers.Toggle.Execute(context.Background(), sitecmd.ToggleSectionCommand{PodcastID: "pod-1", SectionID: "faq"})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if len(*seen) != 0 {
		t.Fatalf("observer must not run on failure")
	}
}

func TestPublishAndUnpublish(t *testing.T) {
	api := testsupport.NewFakeSitesAPI()
	api.Site = &sites.Website{ID: uuid.New(), PodcastID: "pod-1", Status: domain.StatusDraft, Subdomain: "pod-1"}
	handlers, seen := register(t, api)
	ctx := context.Background()

	if err := handlers.Publish.Execute(ctx, sitecmd.PublishSiteCommand{PodcastID: "pod-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := handlers.Publish.Execute(ctx, sitecmd.PublishSiteCommand{PodcastID: "pod-1", Unpublish: true}); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	first := (*seen)[0].result.(*sites.Website)
	second := (*seen)[1].result.(*sites.Website)
	if first.Status != domain.StatusPublished || second.Status != domain.StatusDraft {
		t.Fatalf("unexpected statuses %s / %s", first.Status, second.Status)
	}
}

func TestSectionCommandsReachAPI(t *testing.T) {
	api := testsupport.NewFakeSitesAPI()
	api.Site = &sites.Website{ID: uuid.New(), PodcastID: "pod-1", Status: domain.StatusDraft, Subdomain: "pod-1"}
	api.Sections = sites.SectionState{
		Order:   []string{"hero", "faq"},
		Enabled: map[string]bool{"hero": true, "faq": true},
		Config:  map[string]map[string]any{"hero": {"title": "Hi"}},
	}
	handlers, seen := register(t, api)
	ctx := context.Background()

	if err := handlers.Reorder.Execute(ctx, sitecmd.ReorderSectionsCommand{PodcastID: "pod-1", Order: []string{"faq", "hero"}}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := handlers.Config.Execute(ctx, sitecmd.PatchSectionConfigCommand{PodcastID: "pod-1", SectionID: "hero", Config: map[string]any{"title": "Hello"}}); err != nil {
		t.Fatalf("config: %v", err)
	}
	state := (*seen)[1].result.(*sites.SectionState)
	if state.Order[0] != "faq" || state.Config["hero"]["title"] != "Hello" {
		t.Fatalf("unexpected state %+v", state)
	}
	if api.CallCount("PatchOrder") != 1 || api.CallCount("PatchConfig") != 1 {
		t.Fatalf("unexpected calls %v", api.Calls())
	}
}

func TestRegisterWiresRegistryAndDispatcher(t *testing.T) {
	registry := fixtures.NewRecordingRegistry()
	dispatcher := fixtures.NewRecordingDispatcher()
	handlers, err := sitecmd.Register(testsupport.NewFakeSitesAPI(), sitecmd.RegistrationOptions{
		Registry:   registry,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(registry.Handlers) != 8 || len(dispatcher.Handlers) != 8 {
		t.Fatalf("expected 8 handlers, got %d / %d", len(registry.Handlers), len(dispatcher.Handlers))
	}
	handlers.Close()
	for _, sub := range dispatcher.Subscriptions {
		if !sub.Unsubscribed {
			t.Fatal("expected subscriptions released on close")
		}
	}
}

func TestRegisterJoinsErrors(t *testing.T) {
	registry := fixtures.NewRecordingRegistry()
	registry.Err = errors.New("registry down")
	handlers, err := sitecmd.Register(testsupport.NewFakeSitesAPI(), sitecmd.RegistrationOptions{Registry: registry})
	if err == nil || handlers.Generate == nil {
		t.Fatalf("expected joined error with handlers built, got %v", err)
	}
}
