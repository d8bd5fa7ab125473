// Package sitebuilder composes podcast websites from ordered, configurable
// sections and drives their generate, preview and publish lifecycle.
package sitebuilder

import (
	"context"
	"net/http"

	"github.com/tgdscott/DoneCast-sub013/internal/builder"
	sitecmd "github.com/tgdscott/DoneCast-sub013/internal/commands/site"
	"github.com/tgdscott/DoneCast-sub013/internal/di"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/internal/websites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// WebsiteService exports the reference backend contract.
type WebsiteService = websites.Service

// SitesAPI exports the remote contract consumed by builder sessions.
type SitesAPI = interfaces.SitesAPI

// Session exports the builder session.
type Session = builder.Session

// SessionOptions exports the builder session options.
type SessionOptions = builder.Options

// CommandHandlers exports the site command handler set.
type CommandHandlers = sitecmd.Handlers

// CommandOptions exports the site command registration options.
type CommandOptions = sitecmd.RegistrationOptions

type (
	Website           = sites.Website
	SectionState      = sites.SectionState
	PreviewSnapshot   = sites.PreviewSnapshot
	SectionDefinition = sections.Definition
	Podcast           = websites.Podcast
)

// Module is the entry point for hosts embedding the site builder.
type Module struct {
	container *di.Container
}

// New constructs a module from cfg. The embedded SQL migrations are registered
// ahead of opts so hosts can replace them.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	all := append([]di.Option{di.WithMigrations(migrationsFS, migrationsRoot)}, opts...)
	container, err := di.NewContainer(cfg, all...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container.
func (m *Module) Container() *di.Container {
	return m.container
}

// Bootstrap opens storage, migrates and loads the podcast catalog.
func (m *Module) Bootstrap(ctx context.Context) error {
	return m.container.Bootstrap(ctx)
}

// Close releases resources opened by Bootstrap.
func (m *Module) Close() error {
	return m.container.Close()
}

// Websites returns the reference backend service.
func (m *Module) Websites() (WebsiteService, error) {
	return m.container.WebsiteService()
}

// Handler returns the REST adapter over Websites.
func (m *Module) Handler() (http.Handler, error) {
	return m.container.HTTPHandler()
}

// Client returns the sites API client configured by Config.API.
func (m *Module) Client() (SitesAPI, error) {
	return m.container.SitesAPI()
}

// Commands builds the site command handlers.
func (m *Module) Commands(opts CommandOptions) (*CommandHandlers, error) {
	return m.container.Commands(opts)
}

// Session builds a builder session for podcastID.
func (m *Module) Session(podcastID string) (*Session, error) {
	return m.container.NewSession(podcastID)
}
