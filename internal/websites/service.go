package websites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-slug"

	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/identity"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/markdown"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/internal/validation"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const maxSubdomainAttempts = 50

// Service is the server side of the sites contract: it owns the canonical
// section state of every website and composes previews.
type Service interface {
	Definitions(ctx context.Context) []sections.Definition
	Website(ctx context.Context, podcastID string) (*sites.Website, error)
	Sections(ctx context.Context, podcastID string) (*sites.SectionState, error)
	PatchSections(ctx context.Context, podcastID string, state sites.SectionState) (*sites.SectionState, error)
	PatchOrder(ctx context.Context, podcastID string, order []string) (*sites.SectionState, error)
	Toggle(ctx context.Context, podcastID, sectionID string, enabled bool) (*sites.SectionState, error)
	PatchConfig(ctx context.Context, podcastID, sectionID string, config map[string]any) (*sites.SectionState, error)
	Generate(ctx context.Context, podcastID string, regenerate bool) (*sites.SiteBundle, error)
	UpdateCSS(ctx context.Context, podcastID string, req sites.CSSRequest) (*sites.Website, error)
	Publish(ctx context.Context, podcastID string, unpublish bool) (*sites.Website, error)
	Reset(ctx context.Context, podcastID, phrase string) (*sites.SiteBundle, error)
	Preview(ctx context.Context, subdomain string) (*sites.PreviewSnapshot, error)
}

// Renderer converts textarea values into HTML for previews.
type Renderer interface {
	Render(source string) (string, error)
}

type ServiceOption func(*service)

// WithDefinitions replaces the section catalog.
func WithDefinitions(defs []sections.Definition) ServiceOption {
	return func(s *service) {
		if len(defs) > 0 {
			s.defs = append([]sections.Definition(nil), defs...)
		}
	}
}

func WithGenerator(generator ContentGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.generator = generator
		}
	}
}

func WithPodcasts(source PodcastSource) ServiceOption {
	return func(s *service) {
		if source != nil {
			s.podcasts = source
		}
	}
}

func WithRenderer(renderer Renderer) ServiceOption {
	return func(s *service) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// WithConfirmationPhrase overrides the phrase required by Reset.
func WithConfirmationPhrase(phrase string) ServiceOption {
	return func(s *service) {
		if strings.TrimSpace(phrase) != "" {
			s.phrase = phrase
		}
	}
}

// WithDomainSuffix sets the host suffix of default domains.
func WithDomainSuffix(suffix string) ServiceOption {
	return func(s *service) {
		s.domainSuffix = suffix
	}
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo         Repository
	defs         []sections.Definition
	index        map[string]sections.Definition
	generator    ContentGenerator
	podcasts     PodcastSource
	renderer     Renderer
	phrase       string
	domainSuffix string
	now          func() time.Time
	logger       interfaces.Logger

	// mu serialises read-modify-write cycles on records.
	mu sync.Mutex
}

// NewService wires a service over repo with the default catalog and generator.
func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:      repo,
		defs:      sections.DefaultCatalog(),
		generator: DefaultGenerator{},
		renderer:  markdown.NewRenderer(markdown.Options{}),
		phrase:    sites.DefaultConfirmationPhrase,
		now:       time.Now,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.index = sections.Index(s.defs)
	return s
}

func (s *service) Definitions(context.Context) []sections.Definition {
	return append([]sections.Definition(nil), s.defs...)
}

func (s *service) Website(ctx context.Context, podcastID string) (*sites.Website, error) {
	record, err := s.load(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	return record.Website(s.domainSuffix), nil
}

func (s *service) Sections(ctx context.Context, podcastID string) (*sites.SectionState, error) {
	record, err := s.load(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	state := record.Sections.Clone()
	return &state, nil
}

// PatchSections replaces the whole section state. Configs are checked against
// their definitions without required fields, since freshly added sections
// only carry defaults.
func (s *service) PatchSections(ctx context.Context, podcastID string, state sites.SectionState) (*sites.SectionState, error) {
	state = state.Clone()
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSections, err)
	}
	for _, id := range state.Order {
		def, ok := s.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSection, id)
		}
		if cfg, ok := state.Config[id]; ok {
			if err := validation.ValidatePartialPayload(def.Schema(), cfg); err != nil {
				return nil, configError(id, err)
			}
		}
	}
	return s.mutateSections(ctx, podcastID, "patch_sections", func(record *Record) error {
		record.Sections = state
		return nil
	})
}

func (s *service) PatchOrder(ctx context.Context, podcastID string, order []string) (*sites.SectionState, error) {
	return s.mutateSections(ctx, podcastID, "patch_order", func(record *Record) error {
		if !drafts.IsPermutation(record.Sections.Order, order) {
			return ErrNotPermutation
		}
		record.Sections.Order = append([]string(nil), order...)
		return nil
	})
}

func (s *service) Toggle(ctx context.Context, podcastID, sectionID string, enabled bool) (*sites.SectionState, error) {
	return s.mutateSections(ctx, podcastID, "toggle", func(record *Record) error {
		if !contains(record.Sections.Order, sectionID) {
			return &NotFoundError{Resource: "section", Key: sectionID}
		}
		record.Sections.Enabled[sectionID] = enabled
		return nil
	})
}

func (s *service) PatchConfig(ctx context.Context, podcastID, sectionID string, config map[string]any) (*sites.SectionState, error) {
	def, ok := s.index[sectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	if config == nil {
		config = map[string]any{}
	}
	if err := validation.ValidatePayload(def.Schema(), config); err != nil {
		return nil, configError(sectionID, err)
	}
	return s.mutateSections(ctx, podcastID, "patch_config", func(record *Record) error {
		if !contains(record.Sections.Order, sectionID) {
			return &NotFoundError{Resource: "section", Key: sectionID}
		}
		record.Sections.Config[sectionID] = sites.CloneConfig(config)
		return nil
	})
}

// Generate creates the website of podcastID from its metadata, or refreshes
// it. Regenerate requires an existing website and re-derives sections and
// theme; a plain generate on an existing website only restamps it.
func (s *service) Generate(ctx context.Context, podcastID string, regenerate bool) (*sites.SiteBundle, error) {
	podcastID = strings.TrimSpace(podcastID)
	if podcastID == "" {
		return nil, ErrPodcastRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.WithSiteContext(s.logger, podcastID, "", "generate")
	record, err := s.repo.GetByPodcast(ctx, podcastID)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if regenerate && !exists {
		return nil, &NotFoundError{Resource: "website", Key: podcastID}
	}
	if exists {
		record = record.Clone()
	}

	podcast, err := s.podcast(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if !exists {
		record, err = s.build(ctx, podcast, 0, "")
		if err != nil {
			return nil, err
		}
		record.LastGeneratedAt = &now
		record.CreatedAt = now
		record.UpdatedAt = now
		created, err := s.repo.Create(ctx, record)
		if err != nil {
			return nil, err
		}
		logger.Info("websites.generate.created", "website_id", created.ID, "subdomain", created.Subdomain)
		return s.bundle(created), nil
	}

	if regenerate || len(record.Sections.Order) == 0 {
		state, err := s.generator.Sections(ctx, podcast, s.defs)
		if err != nil {
			return nil, fmt.Errorf("websites: generate sections: %w", err)
		}
		theme, err := s.generator.Theme(ctx, podcast, themeVariant(record.ThemeMetadata))
		if err != nil {
			return nil, fmt.Errorf("websites: generate theme: %w", err)
		}
		record.Sections = state.Clone()
		record.GlobalCSS = theme.GlobalCSS
		record.ThemeMetadata = sites.CloneConfig(theme.Metadata)
	}
	record.Status = record.Status.Next(domain.TransitionGenerate)
	record.LastGeneratedAt = &now
	record.UpdatedAt = now
	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, err
	}
	logger.Info("websites.generate.updated", "website_id", updated.ID, "regenerate", regenerate)
	return s.bundle(updated), nil
}

// UpdateCSS stores css verbatim or, when Generate is set, derives the next
// theme variant and replaces both CSS and theme metadata.
func (s *service) UpdateCSS(ctx context.Context, podcastID string, req sites.CSSRequest) (*sites.Website, error) {
	var podcast Podcast
	if req.Generate {
		var err error
		if podcast, err = s.podcast(ctx, podcastID); err != nil {
			return nil, err
		}
	}
	record, err := s.mutate(ctx, podcastID, func(record *Record) error {
		if req.Generate {
			theme, err := s.generator.Theme(ctx, podcast, themeVariant(record.ThemeMetadata)+1)
			if err != nil {
				return fmt.Errorf("websites: generate theme: %w", err)
			}
			record.GlobalCSS = theme.GlobalCSS
			record.ThemeMetadata = sites.CloneConfig(theme.Metadata)
			return nil
		}
		if req.CSS != nil {
			record.GlobalCSS = *req.CSS
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record.Website(s.domainSuffix), nil
}

func (s *service) Publish(ctx context.Context, podcastID string, unpublish bool) (*sites.Website, error) {
	transition := domain.TransitionPublish
	if unpublish {
		transition = domain.TransitionUnpublish
	}
	record, err := s.mutate(ctx, podcastID, func(record *Record) error {
		if !record.Status.Allows(transition) {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, transition, record.Status)
		}
		if !unpublish && enabledCount(record.Sections) == 0 {
			return ErrEmptySite
		}
		record.Status = record.Status.Next(transition)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("websites.publish", "podcast_id", podcastID, "status", record.Status)
	return record.Website(s.domainSuffix), nil
}

// Reset discards the website and recreates it from defaults under a new
// identity. The subdomain is kept.
func (s *service) Reset(ctx context.Context, podcastID, phrase string) (*sites.SiteBundle, error) {
	if phrase != s.phrase {
		return nil, ErrConfirmationMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	podcast, err := s.podcast(ctx, current.PodcastID)
	if err != nil {
		return nil, err
	}
	next, err := s.build(ctx, podcast, current.Revision+1, current.Subdomain)
	if err != nil {
		return nil, err
	}
	next.Sections = sections.InitialState(s.defs)
	now := s.now().UTC()
	next.CreatedAt = now
	next.UpdatedAt = now

	created, err := s.repo.Replace(ctx, current.ID, next)
	if err != nil {
		return nil, err
	}
	logging.WithSiteContext(s.logger, podcastID, "", "reset").Info("websites.reset", "previous_id", current.ID, "website_id", created.ID)
	return s.bundle(created), nil
}

// Preview composes what the public site would render if published now.
func (s *service) Preview(ctx context.Context, subdomain string) (*sites.PreviewSnapshot, error) {
	subdomain = strings.TrimSpace(subdomain)
	if subdomain == "" {
		return nil, &NotFoundError{Resource: "site", Key: subdomain}
	}
	record, err := s.repo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	podcast, err := s.podcast(ctx, record.PodcastID)
	if err != nil {
		return nil, err
	}

	snapshot := &sites.PreviewSnapshot{
		Sections:  []sites.PreviewSection{},
		Episodes:  []sites.Episode{},
		GlobalCSS: record.GlobalCSS,
		Pages:     append([]sites.Page{}, podcast.Pages...),
	}
	for _, id := range drafts.PinnedOrder(record.Sections.Order) {
		if !record.Sections.Enabled[id] {
			continue
		}
		cfg := sites.CloneConfig(record.Sections.Config[id])
		section := sites.PreviewSection{ID: id, Config: cfg}
		if def, ok := s.index[id]; ok {
			section.Label = def.Label
			section.Rendered = s.render(def, cfg)
		}
		snapshot.Sections = append(snapshot.Sections, section)
		if id == "latest-episodes" {
			snapshot.Episodes = latestEpisodes(podcast.Episodes, cfg)
		}
	}
	return snapshot, nil
}

func (s *service) render(def sections.Definition, cfg map[string]any) map[string]string {
	var rendered map[string]string
	for _, field := range def.Fields() {
		if field.Type() != sections.TypeTextarea {
			continue
		}
		name := field.Base().Name
		text, ok := cfg[name].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		html, err := s.renderer.Render(text)
		if err != nil {
			s.logger.Warn("websites.preview.render_failed", "section", def.ID, "field", name, "error", err)
			continue
		}
		if rendered == nil {
			rendered = map[string]string{}
		}
		rendered[name] = html
	}
	return rendered
}

func (s *service) load(ctx context.Context, podcastID string) (*Record, error) {
	podcastID = strings.TrimSpace(podcastID)
	if podcastID == "" {
		return nil, ErrPodcastRequired
	}
	return s.repo.GetByPodcast(ctx, podcastID)
}

func (s *service) mutate(ctx context.Context, podcastID string, apply func(*Record) error) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load(ctx, podcastID)
	if err != nil {
		return nil, err
	}
	record = record.Clone()
	if err := apply(record); err != nil {
		return nil, err
	}
	record.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, record)
}

func (s *service) mutateSections(ctx context.Context, podcastID, operation string, apply func(*Record) error) (*sites.SectionState, error) {
	record, err := s.mutate(ctx, podcastID, apply)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("websites.sections."+operation, "podcast_id", podcastID, "count", len(record.Sections.Order))
	state := record.Sections.Clone()
	return &state, nil
}

// build assembles a fresh record for podcast. A blank subdomain is derived
// from the podcast title.
func (s *service) build(ctx context.Context, podcast Podcast, revision int, subdomain string) (*Record, error) {
	state, err := s.generator.Sections(ctx, podcast, s.defs)
	if err != nil {
		return nil, fmt.Errorf("websites: generate sections: %w", err)
	}
	theme, err := s.generator.Theme(ctx, podcast, 0)
	if err != nil {
		return nil, fmt.Errorf("websites: generate theme: %w", err)
	}
	if subdomain == "" {
		if subdomain, err = s.subdomainFor(ctx, podcast); err != nil {
			return nil, err
		}
	}
	return &Record{
		ID:            identity.WebsiteUUID(podcast.ID, revision),
		PodcastID:     podcast.ID,
		Revision:      revision,
		Status:        domain.StatusDraft,
		Subdomain:     subdomain,
		GlobalCSS:     theme.GlobalCSS,
		ThemeMetadata: sites.CloneConfig(theme.Metadata),
		Sections:      state.Clone(),
	}, nil
}

func (s *service) subdomainFor(ctx context.Context, podcast Podcast) (string, error) {
	base, err := slug.Normalize(podcast.Title)
	if err != nil || base == "" {
		if base, err = slug.Normalize(podcast.ID); err != nil || base == "" {
			base = "site"
		}
	}
	candidate := base
	for attempt := 2; attempt <= maxSubdomainAttempts+1; attempt++ {
		existing, err := s.repo.GetBySubdomain(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		if existing.PodcastID == podcast.ID {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", fmt.Errorf("%w: no free subdomain for %q", ErrDuplicateWebsite, base)
}

func (s *service) podcast(ctx context.Context, podcastID string) (Podcast, error) {
	if s.podcasts == nil {
		return Podcast{ID: podcastID, Title: podcastID}, nil
	}
	podcast, err := s.podcasts.Podcast(ctx, podcastID)
	if err != nil {
		return Podcast{}, err
	}
	out := *podcast
	if out.ID == "" {
		out.ID = podcastID
	}
	return out, nil
}

func (s *service) bundle(record *Record) *sites.SiteBundle {
	return &sites.SiteBundle{
		Website:  record.Website(s.domainSuffix),
		Sections: record.Sections.Clone(),
	}
}

func configError(sectionID string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, sectionID, err)
}

func contains(order []string, id string) bool {
	for _, candidate := range order {
		if candidate == id {
			return true
		}
	}
	return false
}

func enabledCount(state sites.SectionState) int {
	count := 0
	for _, id := range state.Order {
		if state.Enabled[id] {
			count++
		}
	}
	return count
}

func themeVariant(metadata map[string]any) int {
	return intValue(metadata["variant"], 0)
}

func latestEpisodes(episodes []sites.Episode, cfg map[string]any) []sites.Episode {
	count := intValue(cfg["count"], len(episodes))
	if count < 0 {
		count = 0
	}
	if count > len(episodes) {
		count = len(episodes)
	}
	return append([]sites.Episode{}, episodes[:count]...)
}

// intValue reads numbers that may have round-tripped through JSON.
func intValue(value any, fallback int) int {
	switch typed := value.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}
