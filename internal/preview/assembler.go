// Package preview fetches the canonical preview snapshot of a website and, when
// the preview endpoint is unreachable, assembles an approximate one from the
// local draft.
package preview

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/markdown"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// ErrNoSubdomain is returned when neither the caller nor the draft website
// provides a subdomain.
var ErrNoSubdomain = errors.New("preview: subdomain required")

// Source tells where a snapshot came from.
type Source string

const (
	SourceServer Source = "server"
	SourceLocal  Source = "local"
)

// Preview is a snapshot ready for rendering. Approximate snapshots were built
// locally and may differ from what publishing would produce.
type Preview struct {
	Subdomain   string
	Snapshot    sites.PreviewSnapshot
	Source      Source
	Approximate bool
	// Cause is the fetch error that triggered a local fallback.
	Cause error
}

// Fetcher retrieves the server-composed snapshot.
type Fetcher interface {
	Preview(ctx context.Context, subdomain string) (*sites.PreviewSnapshot, error)
}

// Renderer converts long-form section text into HTML.
type Renderer interface {
	Render(source string) (string, error)
}

// DefinitionLookup resolves section definitions for labels and field types.
type DefinitionLookup interface {
	Lookup(id string) (sections.Definition, bool)
}

// Assembler produces previews for one draft.
type Assembler struct {
	api       Fetcher
	store     *drafts.Store
	defs      DefinitionLookup
	renderer  Renderer
	guard     sites.Guard
	publisher events.Publisher
	logger    interfaces.Logger

	mu       sync.RWMutex
	pages    []sites.Page
	episodes []sites.Episode
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithRenderer overrides the textarea renderer used by local snapshots.
func WithRenderer(renderer Renderer) Option {
	return func(a *Assembler) {
		if renderer != nil {
			a.renderer = renderer
		}
	}
}

// WithGuard sets the lifecycle guard checked before announcing a preview.
func WithGuard(guard sites.Guard) Option {
	return func(a *Assembler) {
		if guard != nil {
			a.guard = guard
		}
	}
}

// WithPublisher sets the bus receiving preview.updated events.
func WithPublisher(publisher events.Publisher) Option {
	return func(a *Assembler) {
		if publisher != nil {
			a.publisher = publisher
		}
	}
}

// WithLogger sets the assembler logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPages seeds the page list used by local snapshots.
func WithPages(pages []sites.Page) Option {
	return func(a *Assembler) {
		a.pages = slices.Clone(pages)
	}
}

// New constructs an assembler over store. defs may be nil.
func New(api Fetcher, store *drafts.Store, defs DefinitionLookup, opts ...Option) *Assembler {
	a := &Assembler{
		api:       api,
		store:     store,
		defs:      defs,
		renderer:  markdown.NewRenderer(markdown.Options{}),
		guard:     sites.AlwaysAlive{},
		publisher: events.Discard{},
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// SetPages replaces the known page list.
func (a *Assembler) SetPages(pages []sites.Page) {
	a.mu.Lock()
	a.pages = slices.Clone(pages)
	a.mu.Unlock()
}

// FetchPreview returns the canonical snapshot for subdomain. A blank subdomain
// falls back to the draft website's. Only transient failures (network errors
// and 5xx) produce a local, approximate snapshot; forbidden and not-found
// responses are returned as errors.
func (a *Assembler) FetchPreview(ctx context.Context, subdomain string) (*Preview, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		if website := a.store.Website(); website != nil {
			subdomain = website.Subdomain
		}
	}
	if subdomain == "" {
		return nil, ErrNoSubdomain
	}

	snapshot, err := a.api.Preview(ctx, subdomain)
	if err == nil && snapshot == nil {
		err = sites.ErrIncompleteResponse
	}
	if err == nil {
		a.remember(snapshot)
		result := &Preview{Subdomain: subdomain, Snapshot: *snapshot, Source: SourceServer}
		a.announce(result, nil)
		return result, nil
	}

	if !fallbackAllowed(ctx, err) {
		a.logger.Debug("preview.fetch.failed", "subdomain", subdomain, "error", err)
		a.announce(nil, err)
		return nil, err
	}

	a.logger.Warn("preview.fallback", "subdomain", subdomain, "error", err)
	result := &Preview{
		Subdomain:   subdomain,
		Snapshot:    a.Assemble(),
		Source:      SourceLocal,
		Approximate: true,
		Cause:       err,
	}
	a.announce(result, nil)
	return result, nil
}

func fallbackAllowed(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, sites.ErrIncompleteResponse) {
		return false
	}
	return sites.Classify(err) == sites.ErrTransient
}

// Assemble builds a snapshot from the draft: enabled sections in render order,
// the website CSS and the last known pages and episodes.
func (a *Assembler) Assemble() sites.PreviewSnapshot {
	a.mu.RLock()
	snapshot := sites.PreviewSnapshot{
		Sections: []sites.PreviewSection{},
		Episodes: slices.Clone(a.episodes),
		Pages:    slices.Clone(a.pages),
	}
	a.mu.RUnlock()
	if snapshot.Episodes == nil {
		snapshot.Episodes = []sites.Episode{}
	}
	if snapshot.Pages == nil {
		snapshot.Pages = []sites.Page{}
	}
	if website := a.store.Website(); website != nil {
		snapshot.GlobalCSS = website.GlobalCSS
	}

	for _, id := range a.store.RenderOrder() {
		if !a.store.Enabled(id) {
			continue
		}
		cfg, _ := a.store.Config(id)
		if cfg == nil {
			cfg = map[string]any{}
		}
		section := sites.PreviewSection{ID: id, Config: cfg}
		if a.defs != nil {
			if def, ok := a.defs.Lookup(id); ok {
				section.Label = def.Label
				section.Rendered = a.render(def, cfg)
			}
		}
		snapshot.Sections = append(snapshot.Sections, section)
	}
	return snapshot
}

func (a *Assembler) render(def sections.Definition, cfg map[string]any) map[string]string {
	var rendered map[string]string
	for _, field := range def.Fields() {
		if field.Type() != sections.TypeTextarea {
			continue
		}
		text, ok := cfg[field.Base().Name].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		html, err := a.renderer.Render(text)
		if err != nil {
			a.logger.Warn("preview.render.failed", "section", def.ID, "field", field.Base().Name, "error", err)
			continue
		}
		if rendered == nil {
			rendered = map[string]string{}
		}
		rendered[field.Base().Name] = html
	}
	return rendered
}

func (a *Assembler) remember(snapshot *sites.PreviewSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if snapshot.Pages != nil {
		a.pages = slices.Clone(snapshot.Pages)
	}
	if snapshot.Episodes != nil {
		a.episodes = slices.Clone(snapshot.Episodes)
	}
}

func (a *Assembler) announce(result *Preview, err error) {
	if !a.guard.Alive() {
		return
	}
	payload := events.PreviewUpdated{Err: err}
	if result != nil {
		snapshot := result.Snapshot
		payload.Subdomain = result.Subdomain
		payload.Approximate = result.Approximate
		payload.Snapshot = &snapshot
	}
	a.publisher.Publish(events.Event{Name: events.NamePreviewUpdated, Payload: payload})
}
