// Package builder wires the draft store, section registry and controllers into
// one session owned by a single caller for one podcast website.
package builder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tgdscott/DoneCast-sub013/internal/configeditor"
	"github.com/tgdscott/DoneCast-sub013/internal/debounce"
	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/generation"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/preview"
	"github.com/tgdscott/DoneCast-sub013/internal/publish"
	"github.com/tgdscott/DoneCast-sub013/internal/reconcile"
	"github.com/tgdscott/DoneCast-sub013/internal/reorder"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const previewKey = "preview"

var (
	ErrPodcastRequired   = errors.New("builder: podcast id required")
	ErrAPIRequired       = errors.New("builder: sites api required")
	ErrUnknownDefinition = errors.New("builder: unknown section definition")
	ErrClosed            = errors.New("builder: session closed")

	errAlreadyPresent = errors.New("builder: section already present")
)

// Options configures a session.
type Options struct {
	PreviewDelay       time.Duration
	DragThreshold      float64
	ConfirmationPhrase string
	AutoPreview        bool
	Registry           *sections.Registry
	Bus                *events.Bus
	Logger             interfaces.LoggerProvider
	Pages              []sites.Page
}

// Session is the mounted builder view of one website. All methods are safe for
// concurrent use. After Close every pending continuation is dropped.
type Session struct {
	podcastID string
	api       interfaces.SitesAPI

	ctx       context.Context
	cancel    context.CancelFunc
	lifecycle *sites.Lifecycle
	closeOnce sync.Once

	bus        *events.Bus
	store      *drafts.Store
	registry   *sections.Registry
	reconciler *reconcile.Reconciler
	reorder    *reorder.Controller
	editor     *configeditor.Editor
	generation *generation.Controller
	publishing *publish.Controller
	preview    *preview.Assembler
	debouncer  *debounce.Debouncer
	logger     interfaces.Logger

	subs []*events.Subscription
}

// New builds a session for podcastID. Nothing is fetched until Mount.
func New(podcastID string, api interfaces.SitesAPI, opts Options) (*Session, error) {
	podcastID = strings.TrimSpace(podcastID)
	if podcastID == "" {
		return nil, ErrPodcastRequired
	}
	if api == nil {
		return nil, ErrAPIRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		podcastID: podcastID,
		api:       api,
		ctx:       ctx,
		cancel:    cancel,
		lifecycle: &sites.Lifecycle{},
		bus:       opts.Bus,
		store:     drafts.NewStore(),
		registry:  opts.Registry,
		debouncer: debounce.New(opts.PreviewDelay),
		logger:    logging.ModuleLogger(opts.Logger, "sitebuilder"),
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}
	if s.registry == nil {
		s.registry = sections.NewRegistry(api, sections.WithLogger(s.logger))
	}

	s.reconciler = reconcile.New(s.store,
		reconcile.WithNotifier(s.bus),
		reconcile.WithPublisher(s.bus),
		reconcile.WithGuard(s.lifecycle),
		reconcile.WithLogger(logging.ReconcileLogger(opts.Logger)),
	)
	s.reorder = reorder.New(s.reconciler, api, podcastID, reorder.WithThreshold(opts.DragThreshold))
	s.editor = configeditor.New(s.reconciler, s.registry, api, podcastID)
	// Generation, publish and reset share one latch so they never overlap.
	latch := &sites.Latch{}
	s.generation = generation.New(s.store, api, podcastID,
		generation.WithLatch(latch),
		generation.WithGuard(s.lifecycle),
		generation.WithNotifier(s.bus),
		generation.WithPublisher(s.bus),
		generation.WithLogger(logging.GenerationLogger(opts.Logger)),
	)
	s.publishing = publish.New(s.store, api, podcastID,
		publish.WithConfirmationPhrase(opts.ConfirmationPhrase),
		publish.WithLatch(latch),
		publish.WithGuard(s.lifecycle),
		publish.WithNotifier(s.bus),
		publish.WithPublisher(s.bus),
		publish.WithLogger(logging.PublishLogger(opts.Logger)),
	)
	s.preview = preview.New(api, s.store, s.registry,
		preview.WithGuard(s.lifecycle),
		preview.WithPublisher(s.bus),
		preview.WithLogger(logging.PreviewLogger(opts.Logger)),
		preview.WithPages(opts.Pages),
	)

	if opts.AutoPreview {
		refresh := func(evt events.Event) {
			if changed, ok := evt.Payload.(events.SectionsChanged); ok && !changed.Confirmed {
				return
			}
			s.RequestPreview()
		}
		s.subs = append(s.subs,
			s.bus.Subscribe(events.NameSectionsChanged, refresh),
			s.bus.Subscribe(events.NameWebsiteChanged, refresh),
		)
	}
	return s, nil
}

// PodcastID returns the podcast the session edits.
func (s *Session) PodcastID() string { return s.podcastID }

// Bus returns the event bus carrying notices and state changes.
func (s *Session) Bus() *events.Bus { return s.bus }

// Store returns the draft store.
func (s *Session) Store() *drafts.Store { return s.store }

// Registry returns the section definition registry.
func (s *Session) Registry() *sections.Registry { return s.registry }

// Reorder returns the reorder controller.
func (s *Session) Reorder() *reorder.Controller { return s.reorder }

// Editor returns the config editor.
func (s *Session) Editor() *configeditor.Editor { return s.editor }

// Generation returns the generation controller.
func (s *Session) Generation() *generation.Controller { return s.generation }

// Publishing returns the publish controller.
func (s *Session) Publishing() *publish.Controller { return s.publishing }

// Preview returns the preview assembler.
func (s *Session) Preview() *preview.Assembler { return s.preview }

// Website returns a copy of the current website, nil before generation.
func (s *Session) Website() *sites.Website { return s.store.Website() }

// Alive reports whether the session has not been closed.
func (s *Session) Alive() bool { return s.lifecycle.Alive() }

// scope derives a context cancelled by either ctx or Close.
func (s *Session) scope(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if !s.lifecycle.Alive() {
		return nil, nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	scoped, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return scoped, func() {
		stop()
		cancel()
	}, nil
}

// Mount loads the section catalog, the website and its sections. A missing
// website is the expected empty state and leaves the draft empty.
func (s *Session) Mount(ctx context.Context) error {
	ctx, done, err := s.scope(ctx)
	if err != nil {
		return err
	}
	defer done()

	logger := logging.WithSiteContext(s.logger, s.podcastID, "", "mount")
	if _, err := s.registry.Load(ctx); err != nil {
		return s.fail(logger, "mount", err)
	}

	website, err := s.api.GetWebsite(ctx, s.podcastID)
	if errors.Is(err, sites.ErrNotFound) {
		if s.lifecycle.Alive() {
			s.store.Clear()
		}
		logger.Info("builder.mount.empty")
		return nil
	}
	if err != nil {
		return s.fail(logger, "mount", err)
	}
	state, err := s.api.GetSections(ctx, s.podcastID)
	if err == nil && state == nil {
		err = sites.ErrIncompleteResponse
	}
	if err != nil {
		return s.fail(logger, "mount", err)
	}
	if !s.lifecycle.Alive() {
		return nil
	}
	if err := s.store.ReplaceAll(website, *state); err != nil {
		return s.fail(logger, "mount", err)
	}
	s.bus.Publish(events.Event{
		Name:    events.NameWebsiteChanged,
		Payload: events.WebsiteChanged{Operation: "mount", Website: website.Clone()},
	})
	logger.Info("builder.mount.loaded", "sections", len(state.Order), "status", website.Status)
	return nil
}

// Definitions lists the loaded section catalog.
func (s *Session) Definitions() []sections.Definition {
	return s.registry.List()
}

// AddSection inserts the definition id enabled with its default config, before
// a trailing footer. Adding a section already present is a no-op.
func (s *Session) AddSection(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if s.store.Has(id) {
		return nil
	}
	def, ok := s.registry.Lookup(id)
	if !ok {
		return ErrUnknownDefinition
	}
	ctx, done, err := s.scope(ctx)
	if err != nil {
		return err
	}
	defer done()

	err = s.reconciler.Apply(ctx, reconcile.Mutation{
		Key:   id,
		Label: "add",
		Mutate: func(store *drafts.Store) error {
			if store.Has(id) {
				return errAlreadyPresent
			}
			return store.Insert(id, store.InsertionIndex(), true, def.Defaults())
		},
		Persist:   s.persistSection(id),
		Exclusive: true,
	})
	if errors.Is(err, errAlreadyPresent) {
		return nil
	}
	return err
}

// DeleteSection removes id from the draft.
func (s *Session) DeleteSection(ctx context.Context, id string) error {
	if !s.store.Has(id) {
		return drafts.ErrSectionNotFound
	}
	ctx, done, err := s.scope(ctx)
	if err != nil {
		return err
	}
	defer done()
	return s.reconciler.Apply(ctx, reconcile.Mutation{
		Key:       id,
		Label:     "delete",
		Mutate:    func(store *drafts.Store) error { return store.Remove(id) },
		Persist:   s.persistSection(id),
		Exclusive: true,
	})
}

// Toggle enables or disables id.
func (s *Session) Toggle(ctx context.Context, id string, enabled bool) error {
	if !s.store.Has(id) {
		return drafts.ErrSectionNotFound
	}
	ctx, done, err := s.scope(ctx)
	if err != nil {
		return err
	}
	defer done()
	return s.reconciler.Apply(ctx, reconcile.Mutation{
		Key:    id,
		Label:  "toggle",
		Mutate: func(store *drafts.Store) error { return store.SetEnabled(id, enabled) },
		Persist: func(ctx context.Context) (*sites.SectionState, error) {
			return s.api.PatchToggle(ctx, s.podcastID, id, enabled)
		},
	})
}

// persistSection sends the whole section state as last confirmed by the
// server plus the draft value of id, so unconfirmed edits of other sections
// never reach the server through an add or delete.
func (s *Session) persistSection(id string) func(context.Context) (*sites.SectionState, error) {
	return func(ctx context.Context) (*sites.SectionState, error) {
		return s.api.PatchSections(ctx, s.podcastID, s.store.ConfirmedWith(id))
	}
}

// ReorderSections replaces the section order with ids.
func (s *Session) ReorderSections(ctx context.Context, ids []string) error {
	return s.run(ctx, func(ctx context.Context) error { return s.reorder.Reorder(ctx, ids) })
}

// MoveUp swaps the section at index with its predecessor.
func (s *Session) MoveUp(ctx context.Context, index int) error {
	return s.run(ctx, func(ctx context.Context) error { return s.reorder.MoveUp(ctx, index) })
}

// MoveDown swaps the section at index with its successor.
func (s *Session) MoveDown(ctx context.Context, index int) error {
	return s.run(ctx, func(ctx context.Context) error { return s.reorder.MoveDown(ctx, index) })
}

// SaveConfig validates and persists values for sectionID.
func (s *Session) SaveConfig(ctx context.Context, sectionID string, values map[string]any) error {
	return s.run(ctx, func(ctx context.Context) error { return s.editor.SaveConfig(ctx, sectionID, values) })
}

// Generate creates or updates the website.
func (s *Session) Generate(ctx context.Context) error {
	return s.run(ctx, s.generation.Generate)
}

// Regenerate rebuilds the website from podcast metadata.
func (s *Session) Regenerate(ctx context.Context) error {
	return s.run(ctx, s.generation.Regenerate)
}

// RegenerateTheme recomputes the theme and global CSS.
func (s *Session) RegenerateTheme(ctx context.Context) error {
	return s.run(ctx, s.generation.RegenerateTheme)
}

// Publish publishes the website, or unpublishes it.
func (s *Session) Publish(ctx context.Context, unpublish bool) error {
	return s.run(ctx, func(ctx context.Context) error { return s.publishing.Publish(ctx, unpublish) })
}

// Reset destroys the website after the confirmation phrase is retyped.
func (s *Session) Reset(ctx context.Context, phrase string) error {
	return s.run(ctx, func(ctx context.Context) error { return s.publishing.Reset(ctx, phrase) })
}

// FetchPreview fetches the preview immediately.
func (s *Session) FetchPreview(ctx context.Context) (*preview.Preview, error) {
	ctx, done, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return s.preview.FetchPreview(ctx, "")
}

// RequestPreview schedules a debounced preview refresh. The result is
// published as a preview.updated event.
func (s *Session) RequestPreview() {
	if !s.lifecycle.Alive() {
		return
	}
	s.debouncer.Trigger(previewKey, func() {
		if _, err := s.preview.FetchPreview(s.ctx, ""); err != nil {
			s.logger.Debug("builder.preview.failed", "error", err)
		}
	})
}

// PlayEpisode asks the embedded player to start episodeID at startAt seconds.
func (s *Session) PlayEpisode(episodeID string, startAt float64) {
	if !s.lifecycle.Alive() || strings.TrimSpace(episodeID) == "" {
		return
	}
	s.bus.Publish(events.Event{
		Name:    events.NameEpisodePlay,
		Payload: events.EpisodePlay{EpisodeID: episodeID, StartAt: startAt},
	})
}

// Close tears the session down. In-flight responses are ignored afterwards and
// pending previews are dropped.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.lifecycle.Close()
		s.cancel()
		s.debouncer.Stop()
		for _, sub := range s.subs {
			sub.Unsubscribe()
		}
		s.subs = nil
	})
	return nil
}

func (s *Session) run(ctx context.Context, fn func(context.Context) error) error {
	ctx, done, err := s.scope(ctx)
	if err != nil {
		return err
	}
	defer done()
	return fn(ctx)
}

func (s *Session) fail(logger interfaces.Logger, operation string, err error) error {
	logger.Warn("builder.failed", "error", err)
	if s.lifecycle.Alive() {
		s.bus.Notify(events.Notice{
			Severity:  events.SeverityError,
			Operation: operation,
			Message:   sites.Describe(err),
			Err:       err,
		})
	}
	return err
}
