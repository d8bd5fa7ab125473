package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/tgdscott/DoneCast-sub013/internal/apiclient"
	"github.com/tgdscott/DoneCast-sub013/internal/builder"
	sitecmd "github.com/tgdscott/DoneCast-sub013/internal/commands/site"
	sitehttp "github.com/tgdscott/DoneCast-sub013/internal/http"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/logging/gologger"
	"github.com/tgdscott/DoneCast-sub013/internal/markdown"
	"github.com/tgdscott/DoneCast-sub013/internal/runtimeconfig"
	"github.com/tgdscott/DoneCast-sub013/internal/websites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// ErrNotBootstrapped is returned when storage-backed services are requested
// before Bootstrap ran for a sql driver.
var ErrNotBootstrapped = errors.New("di: container storage not bootstrapped")

// Container wires the builder client and the reference backend.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider

	fsys           fs.FS
	migrationsFS   fs.FS
	migrationsRoot string

	bunDB         *bun.DB
	ownsDB        bool
	cacheTTL      time.Duration
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	mu         sync.Mutex
	repo       websites.Repository
	podcasts   websites.PodcastSource
	websiteSvc websites.Service
	sitesAPI   interfaces.SitesAPI
	httpClient *http.Client
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider built from the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithBunDB supplies an open database instead of dialing Config.Storage.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the go-repository-cache service used by bun repositories.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithMigrations registers the embedded SQL migrations run by Bootstrap.
func WithMigrations(fsys fs.FS, root string) Option {
	return func(c *Container) {
		c.migrationsFS = fsys
		c.migrationsRoot = root
	}
}

// WithFS sets the filesystem podcast catalogs and pages are read from.
// Defaults to the working directory.
func WithFS(fsys fs.FS) Option {
	return func(c *Container) {
		if fsys != nil {
			c.fsys = fsys
		}
	}
}

// WithRepository overrides the website repository.
func WithRepository(repo websites.Repository) Option {
	return func(c *Container) {
		c.repo = repo
	}
}

// WithPodcastSource overrides the podcast metadata source.
func WithPodcastSource(source websites.PodcastSource) Option {
	return func(c *Container) {
		c.podcasts = source
	}
}

// WithWebsiteService overrides the backend service.
func WithWebsiteService(svc websites.Service) Option {
	return func(c *Container) {
		c.websiteSvc = svc
	}
}

// WithSitesAPI overrides the remote client used by commands and sessions.
func WithSitesAPI(api interfaces.SitesAPI) Option {
	return func(c *Container) {
		c.sitesAPI = api
	}
}

// WithHTTPClient overrides the net/http client behind the sites API client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// NewContainer validates cfg and applies opts. Nothing is dialed until Bootstrap.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheTTL := cfg.Cache.DefaultTTL.Std()
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	c := &Container{
		Config:   cfg,
		fsys:     os.DirFS("."),
		cacheTTL: cacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	if !c.Config.Features.Logger || strings.EqualFold(c.Config.Logging.Provider, "noop") {
		c.loggerProvider = noopProvider{}
		return nil
	}
	provider, err := gologger.NewProvider(gologger.Config{
		Level:     c.Config.Logging.Level,
		Format:    c.Config.Logging.Format,
		AddSource: c.Config.Logging.AddSource,
		Focus:     c.Config.Logging.Focus,
	})
	if err != nil {
		return err
	}
	c.loggerProvider = provider
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		cfg.TTL = c.cacheTTL
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

// Bootstrap opens the configured database, applies migrations and loads the
// podcast catalog. It is a no-op for anything already supplied through options.
func (c *Container) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo == nil && c.bunDB == nil && c.Config.Storage.Driver != runtimeconfig.DriverMemory {
		db, err := openDB(c.Config.Storage)
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if c.bunDB != nil && c.Config.Storage.AutoMigrate {
		if err := c.migrate(ctx); err != nil {
			return err
		}
	}
	if c.podcasts == nil && strings.TrimSpace(c.Config.Podcasts.File) != "" {
		src, err := websites.LoadPodcastFile(ctx, c.fsys, c.Config.Podcasts.File, c.Config.Podcasts.PagesDir)
		if err != nil {
			return err
		}
		c.podcasts = src
	}
	return nil
}

func (c *Container) migrate(ctx context.Context) error {
	logger := logging.ModuleLogger(c.loggerProvider, "sitebuilder.migrations")
	if c.migrationsFS == nil {
		return websites.Migrate(ctx, c.bunDB)
	}
	applied, err := runMigrations(ctx, c.bunDB, c.migrationsFS, c.migrationsRoot, logger)
	if err != nil {
		return fmt.Errorf("di: migrate: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations.applied", "migrations", applied)
	}
	return nil
}

// Close releases a database opened by Bootstrap.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ownsDB && c.bunDB != nil {
		err := c.bunDB.Close()
		c.bunDB = nil
		c.ownsDB = false
		return err
	}
	return nil
}

// LoggerProvider exposes the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// BunDB exposes the database handle, nil for the memory driver.
func (c *Container) BunDB() *bun.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bunDB
}

// Repository returns the website repository for the configured driver.
func (c *Container) Repository() (websites.Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repository()
}

func (c *Container) repository() (websites.Repository, error) {
	if c.repo != nil {
		return c.repo, nil
	}
	switch {
	case c.bunDB != nil:
		c.repo = websites.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	case c.Config.Storage.Driver == runtimeconfig.DriverMemory:
		c.repo = websites.NewMemoryRepository()
	default:
		return nil, ErrNotBootstrapped
	}
	return c.repo, nil
}

// WebsiteService returns the backend service.
func (c *Container) WebsiteService() (websites.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.websiteSvc != nil {
		return c.websiteSvc, nil
	}
	repo, err := c.repository()
	if err != nil {
		return nil, err
	}
	opts := []websites.ServiceOption{
		websites.WithRenderer(markdown.NewRenderer(markdown.Options{
			Extensions: c.Config.Markdown.Extensions,
			HardWraps:  c.Config.Markdown.HardWraps,
			Unsafe:     c.Config.Markdown.Unsafe,
		})),
		websites.WithConfirmationPhrase(c.Config.Server.ConfirmationPhrase),
		websites.WithDomainSuffix(c.Config.Server.DomainSuffix),
		websites.WithLogger(logging.WebsitesLogger(c.loggerProvider)),
	}
	if c.podcasts != nil {
		opts = append(opts, websites.WithPodcasts(c.podcasts))
	}
	c.websiteSvc = websites.NewService(repo, opts...)
	return c.websiteSvc, nil
}

// HTTPHandler returns the REST adapter over the backend service.
func (c *Container) HTTPHandler() (http.Handler, error) {
	svc, err := c.WebsiteService()
	if err != nil {
		return nil, err
	}
	api := sitehttp.NewSiteAPI(svc,
		sitehttp.WithAuthenticator(sitehttp.NewTokenAuthenticator(c.Config.Server.Tokens)),
		sitehttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
	)
	return api.Handler(), nil
}

// SitesAPI returns the remote client configured by Config.API.
func (c *Container) SitesAPI() (interfaces.SitesAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sitesAPI != nil {
		return c.sitesAPI, nil
	}
	opts := []apiclient.Option{apiclient.WithLogger(logging.ModuleLogger(c.loggerProvider, "sitebuilder.apiclient"))}
	if c.httpClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(c.httpClient))
	}
	client, err := apiclient.New(apiclient.Config{
		BaseURL: c.Config.API.BaseURL,
		Token:   c.Config.API.Token,
		Timeout: c.Config.API.Timeout.Std(),
	}, opts...)
	if err != nil {
		return nil, err
	}
	c.sitesAPI = client
	return c.sitesAPI, nil
}

// Commands builds the site command handlers over the sites API.
func (c *Container) Commands(opts sitecmd.RegistrationOptions) (*sitecmd.Handlers, error) {
	api, err := c.SitesAPI()
	if err != nil {
		return nil, err
	}
	if opts.LoggerProvider == nil {
		opts.LoggerProvider = c.loggerProvider
	}
	return sitecmd.Register(api, opts)
}

// NewSession builds a builder session for podcastID configured from Config.Builder.
func (c *Container) NewSession(podcastID string) (*builder.Session, error) {
	api, err := c.SitesAPI()
	if err != nil {
		return nil, err
	}
	return builder.New(podcastID, api, builder.Options{
		PreviewDelay:       c.Config.Builder.PreviewDelay.Std(),
		DragThreshold:      c.Config.Builder.DragThreshold,
		ConfirmationPhrase: c.Config.Builder.ConfirmationPhrase,
		AutoPreview:        c.Config.Builder.AutoPreview,
		Logger:             c.loggerProvider,
	})
}

type noopProvider struct{}

func (noopProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }
