// Package publish drives website status transitions and the destructive reset.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// DefaultConfirmationPhrase must be retyped exactly before a reset.
const DefaultConfirmationPhrase = sites.DefaultConfirmationPhrase

var (
	ErrEmptySite            = errors.New("publish: website has no enabled sections")
	ErrInvalidTransition    = errors.New("publish: transition not allowed from current status")
	ErrConfirmationMismatch = errors.New("publish: confirmation phrase does not match")
	ErrReloadFailed         = errors.New("publish: reload after transition failed")
	ErrBusy                 = errors.New("publish: another transition is in progress")
)

// ReloadError reports that a transition succeeded but the follow-up reload did
// not. Local state reflects the transition response.
type ReloadError struct {
	Operation string
	Cause     error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("%s succeeded but reload failed: %v", e.Operation, e.Cause)
}

// Unwrap matches both ErrReloadFailed and the underlying cause.
func (e *ReloadError) Unwrap() []error {
	return []error{ErrReloadFailed, e.Cause}
}

// API is the remote surface the controller needs.
type API interface {
	GetWebsite(ctx context.Context, podcastID string) (*sites.Website, error)
	GetSections(ctx context.Context, podcastID string) (*sites.SectionState, error)
	Publish(ctx context.Context, podcastID string, req sites.PublishRequest) (*sites.Website, error)
	Reset(ctx context.Context, podcastID string, req sites.ResetRequest) (*sites.SiteBundle, error)
}

// Controller moves one website through its lifecycle.
type Controller struct {
	store     *drafts.Store
	api       API
	podcastID string
	phrase    string
	guard     sites.Guard
	notifier  events.Notifier
	publisher events.Publisher
	logger    interfaces.Logger
	latch     *sites.Latch
}

// Option customises a Controller.
type Option func(*Controller)

// WithConfirmationPhrase overrides the reset phrase.
func WithConfirmationPhrase(phrase string) Option {
	return func(c *Controller) {
		if phrase != "" {
			c.phrase = phrase
		}
	}
}

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

// WithPublisher sets the bus receiving website events.
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
		phrase:    DefaultConfirmationPhrase,
		guard:     sites.AlwaysAlive{},
		notifier:  events.Discard{},
		publisher: events.Discard{},
		logger:    logging.NoOp(),
		latch:     &sites.Latch{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ConfirmationPhrase returns the literal a reset requires.
func (c *Controller) ConfirmationPhrase() string {
	return c.phrase
}

// Status returns the current website status.
func (c *Controller) Status() domain.Status {
	website := c.store.Website()
	if website == nil {
		return domain.StatusNone
	}
	return website.Status
}

// Publish publishes the site, or returns it to draft when unpublish is true.
// Publishing requires a website with at least one enabled section; unpublishing
// requires a published website. Rejected requests never reach the network.
func (c *Controller) Publish(ctx context.Context, unpublish bool) error {
	operation := string(domain.TransitionPublish)
	transition := domain.TransitionPublish
	if unpublish {
		operation = string(domain.TransitionUnpublish)
		transition = domain.TransitionUnpublish
	}

	website := c.store.Website()
	if !unpublish && (website == nil || c.store.EnabledCount() == 0) {
		return c.reject(operation, ErrEmptySite, "Enable at least one section before publishing.")
	}
	status := domain.StatusNone
	if website != nil {
		status = website.Status
	}
	if !status.Allows(transition) {
		return c.reject(operation, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, operation, status),
			fmt.Sprintf("The website cannot %s while it is %s.", operation, status))
	}

	release, err := c.acquire(operation)
	if err != nil {
		return err
	}
	defer release()

	logger := logging.WithSiteContext(c.logger, c.podcastID, "", operation)
	logger.Info("publish.start", "status", status)

	updated, err := c.api.Publish(ctx, c.podcastID, sites.PublishRequest{Unpublish: unpublish})
	if err == nil && updated == nil {
		err = sites.ErrIncompleteResponse
	}
	if err != nil {
		return c.fail(logger, operation, err)
	}
	if !c.guard.Alive() {
		return nil
	}
	c.store.SetWebsite(updated)
	c.announce(operation, updated)
	logger.Info("publish.completed", "status", updated.Status)
	return c.reload(ctx, logger, operation)
}

// Reset destroys the website and recreates it with defaults. phrase must match
// the confirmation phrase exactly.
func (c *Controller) Reset(ctx context.Context, phrase string) error {
	const operation = string(domain.TransitionReset)
	if phrase != c.phrase {
		return c.reject(operation, ErrConfirmationMismatch,
			fmt.Sprintf("Type %q exactly to reset the website.", c.phrase))
	}
	release, err := c.acquire(operation)
	if err != nil {
		return err
	}
	defer release()

	logger := logging.WithSiteContext(c.logger, c.podcastID, "", operation)
	logger.Warn("publish.reset.start")

	bundle, err := c.api.Reset(ctx, c.podcastID, sites.ResetRequest{ConfirmationPhrase: phrase})
	if err == nil {
		err = bundle.Validate()
	}
	if err != nil {
		return c.fail(logger, operation, err)
	}
	if !c.guard.Alive() {
		return nil
	}
	if err := c.store.ReplaceAll(bundle.Website, bundle.Sections); err != nil {
		return c.fail(logger, operation, err)
	}
	c.announce(operation, bundle.Website)
	logger.Info("publish.reset.completed", "sections", len(bundle.Sections.Order))
	return c.reload(ctx, logger, operation)
}

// Reload replaces the website and sections with the server's current state.
func (c *Controller) Reload(ctx context.Context) error {
	logger := logging.WithSiteContext(c.logger, c.podcastID, "", "reload")
	return c.reload(ctx, logger, "reload")
}

func (c *Controller) reload(ctx context.Context, logger interfaces.Logger, operation string) error {
	website, err := c.api.GetWebsite(ctx, c.podcastID)
	if err != nil {
		return c.reloadFailed(logger, operation, err)
	}
	state, err := c.api.GetSections(ctx, c.podcastID)
	if err == nil && state == nil {
		err = sites.ErrIncompleteResponse
	}
	if err != nil {
		return c.reloadFailed(logger, operation, err)
	}
	if !c.guard.Alive() {
		return nil
	}
	if err := c.store.ReplaceAll(website, *state); err != nil {
		return c.reloadFailed(logger, operation, err)
	}
	c.announce("reload", website)
	return nil
}

func (c *Controller) reloadFailed(logger interfaces.Logger, operation string, err error) error {
	wrapped := &ReloadError{Operation: operation, Cause: err}
	logger.Warn("publish.reload.failed", "error", err)
	if c.guard.Alive() {
		c.notifier.Notify(events.Notice{
			Severity:  events.SeverityError,
			Operation: operation,
			Message:   "The change was saved but the latest website could not be loaded. Refresh to see it.",
			Err:       wrapped,
		})
	}
	return wrapped
}

func (c *Controller) announce(operation string, website *sites.Website) {
	c.publisher.Publish(events.Event{
		Name:    events.NameWebsiteChanged,
		Payload: events.WebsiteChanged{Operation: operation, Website: website.Clone()},
	})
}

func (c *Controller) acquire(operation string) (func(), error) {
	release, holder, ok := c.latch.TryAcquire(operation)
	if !ok {
		c.logger.Debug("publish.busy", "holder", holder, "requested", operation)
		return nil, c.reject(operation, fmt.Errorf("%w (%s)", ErrBusy, holder),
			"Another website operation is still running. Try again once it finishes.")
	}
	return release, nil
}

// reject reports a request refused before reaching the network.
func (c *Controller) reject(operation string, err error, message string) error {
	if c.guard.Alive() {
		c.notifier.Notify(events.Notice{
			Severity:  events.SeverityWarning,
			Operation: operation,
			Message:   message,
			Err:       err,
		})
	}
	return err
}

func (c *Controller) fail(logger interfaces.Logger, operation string, err error) error {
	logger.Warn("publish.failed", "error", err)
	if c.guard.Alive() {
		c.notifier.Notify(events.Notice{
			Severity:  events.SeverityError,
			Operation: operation,
			Message:   sites.Describe(err),
			Err:       err,
		})
	}
	return err
}
