// Package generation drives the long-running generate, regenerate and
// regenerate-theme operations of a website.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// Phase is the state of the generation controller.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseGenerating        Phase = "generating"
	PhaseRegenerating      Phase = "regenerating"
	PhaseRegeneratingTheme Phase = "regeneratingTheme"
)

var (
	// ErrBusy rejects an operation while another one is in flight.
	ErrBusy = errors.New("generation: another generation is in progress")
	// ErrWebsiteRequired rejects regeneration before a website exists.
	ErrWebsiteRequired = errors.New("generation: website has not been generated yet")
)

// API is the remote surface the controller needs.
type API interface {
	GenerateWebsite(ctx context.Context, podcastID string, req sites.GenerateRequest) (*sites.SiteBundle, error)
	UpdateCSS(ctx context.Context, podcastID string, req sites.CSSRequest) (*sites.Website, error)
}

// Controller runs at most one generation operation at a time.
type Controller struct {
	store     *drafts.Store
	api       API
	podcastID string
	guard     sites.Guard
	notifier  events.Notifier
	publisher events.Publisher
	logger    interfaces.Logger
	latch     *sites.Latch

	mu      sync.Mutex
	phase   Phase
	release func()
}

// Option customises a Controller.
type Option func(*Controller)

// WithGuard sets the lifecycle guard checked before applying a response.
func WithGuard(guard sites.Guard) Option {
	return func(c *Controller) {
		if guard != nil {
			c.guard = guard
		}
	}
}

// WithNotifier sets the user-visible error channel.
func WithNotifier(notifier events.Notifier) Option {
	return func(c *Controller) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithPublisher sets the bus receiving phase and website events.
func WithPublisher(publisher events.Publisher) Option {
	return func(c *Controller) {
		if publisher != nil {
			c.publisher = publisher
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLatch shares the operation latch with other controllers of the session.
func WithLatch(latch *sites.Latch) Option {
	return func(c *Controller) {
		if latch != nil {
			c.latch = latch
		}
	}
}

// New constructs a controller for podcastID.
func New(store *drafts.Store, api API, podcastID string, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		api:       api,
		podcastID: podcastID,
		guard:     sites.AlwaysAlive{},
		notifier:  events.Discard{},
		publisher: events.Discard{},
		logger:    logging.NoOp(),
		latch:     &sites.Latch{},
		phase:     PhaseIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Phase reports the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether an operation is in flight.
func (c *Controller) Busy() bool {
	return c.Phase() != PhaseIdle
}

func (c *Controller) begin(phase Phase) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		current := string(c.phase)
		c.mu.Unlock()
		return c.busy(phase, current)
	}
	release, holder, ok := c.latch.TryAcquire(string(phase))
	if !ok {
		c.mu.Unlock()
		return c.busy(phase, holder)
	}
	c.phase = phase
	c.release = release
	c.mu.Unlock()
	c.publishPhase(phase, nil)
	return nil
}

func (c *Controller) end(err error) {
	c.mu.Lock()
	c.phase = PhaseIdle
	release := c.release
	c.release = nil
	c.mu.Unlock()
	if release != nil {
		release()
	}
	c.publishPhase(PhaseIdle, err)
}

func (c *Controller) busy(phase Phase, holder string) error {
	c.logger.Debug("generation.busy", "holder", holder, "requested", phase)
	return c.reject(phase, fmt.Errorf("%w (%s)", ErrBusy, holder),
		"Another website operation is still running. Try again once it finishes.")
}

func (c *Controller) publishPhase(phase Phase, err error) {
	c.publisher.Publish(events.Event{
		Name:    events.NameGenerationPhase,
		Payload: events.GenerationPhase{Phase: string(phase), Err: err},
	})
}

// Generate creates the website, or updates it when it already exists. Retrying
// after a timeout is safe.
func (c *Controller) Generate(ctx context.Context) error {
	return c.runBundle(ctx, PhaseGenerating, sites.GenerateRequest{})
}

// Regenerate re-derives layout, colors and sections from podcast metadata,
// overwriting manual section edits.
func (c *Controller) Regenerate(ctx context.Context) error {
	if c.store.Website() == nil {
		return c.reject(PhaseRegenerating, ErrWebsiteRequired, websiteRequiredMessage)
	}
	return c.runBundle(ctx, PhaseRegenerating, sites.GenerateRequest{Regenerate: true})
}

func (c *Controller) runBundle(ctx context.Context, phase Phase, req sites.GenerateRequest) (err error) {
	if err := c.begin(phase); err != nil {
		return err
	}
	defer func() { c.end(err) }()

	logger := logging.WithSiteContext(c.logger, c.podcastID, "", string(phase))
	logger.Info("generation.start")

	bundle, err := c.api.GenerateWebsite(ctx, c.podcastID, req)
	if err == nil {
		err = bundle.Validate()
	}
	if err != nil {
		return c.fail(logger, phase, err)
	}
	if !c.guard.Alive() {
		logger.Debug("generation.stale")
		return nil
	}
	if err := c.store.ReplaceAll(bundle.Website, bundle.Sections); err != nil {
		return c.fail(logger, phase, err)
	}
	c.publisher.Publish(events.Event{
		Name:    events.NameWebsiteChanged,
		Payload: events.WebsiteChanged{Operation: string(phase), Website: bundle.Website.Clone()},
	})
	logger.Info("generation.completed", "sections", len(bundle.Sections.Order))
	return nil
}

// RegenerateTheme recomputes only the theme and global CSS. Sections are not
// touched.
func (c *Controller) RegenerateTheme(ctx context.Context) (err error) {
	current := c.store.Website()
	if current == nil {
		return c.reject(PhaseRegeneratingTheme, ErrWebsiteRequired, websiteRequiredMessage)
	}
	if err := c.begin(PhaseRegeneratingTheme); err != nil {
		return err
	}
	defer func() { c.end(err) }()

	logger := logging.WithSiteContext(c.logger, c.podcastID, "", string(PhaseRegeneratingTheme))
	logger.Info("generation.start")

	website, err := c.api.UpdateCSS(ctx, c.podcastID, sites.CSSRequest{Generate: true})
	if err == nil && (website == nil || strings.TrimSpace(website.PodcastID) == "") {
		err = sites.ErrIncompleteResponse
	}
	if err != nil {
		return c.fail(logger, PhaseRegeneratingTheme, err)
	}
	if !c.guard.Alive() {
		logger.Debug("generation.stale")
		return nil
	}

	latest := c.store.Website()
	if latest == nil {
		latest = current
	}
	latest.GlobalCSS = website.GlobalCSS
	latest.ThemeMetadata = sites.CloneConfig(website.ThemeMetadata)
	c.store.SetWebsite(latest)
	c.publisher.Publish(events.Event{
		Name:    events.NameWebsiteChanged,
		Payload: events.WebsiteChanged{Operation: string(PhaseRegeneratingTheme), Website: latest.Clone()},
	})
	logger.Info("generation.completed")
	return nil
}

const websiteRequiredMessage = "Generate the website before regenerating it."

// reject reports a request refused before reaching the network.
func (c *Controller) reject(phase Phase, err error, message string) error {
	if c.guard.Alive() {
		c.notifier.Notify(events.Notice{
			Severity:  events.SeverityWarning,
			Operation: string(phase),
			Message:   message,
			Err:       err,
		})
	}
	return err
}

func (c *Controller) fail(logger interfaces.Logger, phase Phase, err error) error {
	logger.Warn("generation.failed", "error", err)
	if c.guard.Alive() {
		c.notifier.Notify(events.Notice{
			Severity:  events.SeverityError,
			Operation: string(phase),
			Message:   sites.Describe(err),
			Err:       err,
		})
	}
	return err
}
