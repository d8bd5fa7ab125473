package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

var _ interfaces.SitesAPI = (*FakeSitesAPI)(nil)

// FakeSitesAPI is an in-memory SitesAPI that records every call. It keeps a
// single website and behaves like a permissive server.
type FakeSitesAPI struct {
	mu sync.Mutex

	Definitions []json.RawMessage
	Site        *sites.Website
	Sections    sites.SectionState
	Snapshot    *sites.PreviewSnapshot
	// Defaults is the section state generate and reset produce.
	Defaults sites.SectionState
	// Errors makes the named method fail, keyed by method name ("PatchOrder").
	Errors map[string]error
	// Hook runs at the start of every call; a non-nil error fails the call.
	Hook func(ctx context.Context, method string) error

	calls []string
}

// NewFakeSitesAPI returns a fake with no website.
func NewFakeSitesAPI() *FakeSitesAPI {
	return &FakeSitesAPI{
		Sections: sites.SectionState{}.Clone(),
		Defaults: sites.SectionState{}.Clone(),
		Errors:   map[string]error{},
	}
}

// Calls returns the methods invoked so far, in order.
func (f *FakeSitesAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount reports how many times method was invoked.
func (f *FakeSitesAPI) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == method {
			count++
		}
	}
	return count
}

// Fail makes method return err until cleared with a nil err.
func (f *FakeSitesAPI) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, method)
		return
	}
	f.Errors[method] = err
}

func (f *FakeSitesAPI) begin(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	hook := f.Hook
	err := f.Errors[method]
	f.mu.Unlock()
	if hook != nil {
		if hookErr := hook(ctx, method); hookErr != nil {
			return hookErr
		}
	}
	return err
}

func (f *FakeSitesAPI) sectionsCopy() *sites.SectionState {
	state := f.Sections.Clone()
	return &state
}

func (f *FakeSitesAPI) ListDefinitions(ctx context.Context) ([]json.RawMessage, error) {
	if err := f.begin(ctx, "ListDefinitions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Definitions), nil
}

func (f *FakeSitesAPI) GetWebsite(ctx context.Context, podcastID string) (*sites.Website, error) {
	if err := f.begin(ctx, "GetWebsite"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Site == nil {
		return nil, &sites.APIError{Method: "GET", Path: "/websites/" + podcastID, Status: 404, Kind: sites.ErrNotFound}
	}
	return f.Site.Clone(), nil
}

func (f *FakeSitesAPI) GetSections(ctx context.Context, podcastID string) (*sites.SectionState, error) {
	if err := f.begin(ctx, "GetSections"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sectionsCopy(), nil
}

func (f *FakeSitesAPI) PatchSections(ctx context.Context, podcastID string, state sites.SectionState) (*sites.SectionState, error) {
	if err := f.begin(ctx, "PatchSections"); err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, &sites.APIError{Status: 422, Message: err.Error(), Kind: sites.ErrRejected}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sections = state.Clone()
	return f.sectionsCopy(), nil
}

func (f *FakeSitesAPI) PatchOrder(ctx context.Context, podcastID string, order []string) (*sites.SectionState, error) {
	if err := f.begin(ctx, "PatchOrder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sections.Order = slices.Clone(order)
	return f.sectionsCopy(), nil
}

func (f *FakeSitesAPI) PatchToggle(ctx context.Context, podcastID, sectionID string, enabled bool) (*sites.SectionState, error) {
	if err := f.begin(ctx, "PatchToggle"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.Sections.Order, sectionID) {
		return nil, &sites.APIError{Status: 404, Kind: sites.ErrNotFound}
	}
	f.Sections.Enabled[sectionID] = enabled
	return f.sectionsCopy(), nil
}

func (f *FakeSitesAPI) PatchConfig(ctx context.Context, podcastID, sectionID string, config map[string]any) (*sites.SectionState, error) {
	if err := f.begin(ctx, "PatchConfig"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.Sections.Order, sectionID) {
		return nil, &sites.APIError{Status: 404, Kind: sites.ErrNotFound}
	}
	f.Sections.Config[sectionID] = sites.CloneConfig(config)
	return f.sectionsCopy(), nil
}

func (f *FakeSitesAPI) GenerateWebsite(ctx context.Context, podcastID string, req sites.GenerateRequest) (*sites.SiteBundle, error) {
	if err := f.begin(ctx, "GenerateWebsite"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	if f.Site == nil {
		f.Site = &sites.Website{
			ID:        uuid.New(),
			PodcastID: podcastID,
			Status:    domain.StatusDraft,
			Subdomain: podcastID,
		}
	}
	f.Site.LastGeneratedAt = &now
	f.Site.GlobalCSS = fmt.Sprintf("/* generated %d */", now.UnixNano())
	if req.Regenerate || len(f.Sections.Order) == 0 {
		f.Sections = f.Defaults.Clone()
	}
	return &sites.SiteBundle{Website: f.Site.Clone(), Sections: f.Sections.Clone()}, nil
}

func (f *FakeSitesAPI) UpdateCSS(ctx context.Context, podcastID string, req sites.CSSRequest) (*sites.Website, error) {
	if err := f.begin(ctx, "UpdateCSS"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Site == nil {
		return nil, &sites.APIError{Status: 404, Kind: sites.ErrNotFound}
	}
	switch {
	case req.Generate:
		f.Site.GlobalCSS = ":root{--accent:#ff6600}"
		f.Site.ThemeMetadata = map[string]any{"accent": "#ff6600"}
	case req.CSS != nil:
		f.Site.GlobalCSS = *req.CSS
	}
	return f.Site.Clone(), nil
}

func (f *FakeSitesAPI) Publish(ctx context.Context, podcastID string, req sites.PublishRequest) (*sites.Website, error) {
	if err := f.begin(ctx, "Publish"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Site == nil {
		return nil, &sites.APIError{Status: 404, Kind: sites.ErrNotFound}
	}
	if req.Unpublish {
		f.Site.Status = domain.StatusDraft
	} else {
		f.Site.Status = domain.StatusPublished
	}
	return f.Site.Clone(), nil
}

func (f *FakeSitesAPI) Reset(ctx context.Context, podcastID string, req sites.ResetRequest) (*sites.SiteBundle, error) {
	if err := f.begin(ctx, "Reset"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Site = &sites.Website{
		ID:        uuid.New(),
		PodcastID: podcastID,
		Status:    domain.StatusDraft,
		Subdomain: podcastID,
	}
	f.Sections = f.Defaults.Clone()
	return &sites.SiteBundle{Website: f.Site.Clone(), Sections: f.Sections.Clone()}, nil
}

func (f *FakeSitesAPI) Preview(ctx context.Context, subdomain string) (*sites.PreviewSnapshot, error) {
	if err := f.begin(ctx, "Preview"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Snapshot == nil {
		return nil, &sites.APIError{Status: 404, Kind: sites.ErrNotFound}
	}
	snapshot := *f.Snapshot
	return &snapshot, nil
}
