package runtimeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

var ErrAPIBaseURLInvalid = errors.New("sitebuilder config: api base_url must be an absolute http(s) URL")
var ErrAPITimeoutInvalid = errors.New("sitebuilder config: api timeout must be zero or positive")
var ErrPreviewDelayInvalid = errors.New("sitebuilder config: builder preview_delay must be zero or positive")
var ErrDragThresholdInvalid = errors.New("sitebuilder config: builder drag_threshold must be zero or positive")
var ErrConfirmationPhraseRequired = errors.New("sitebuilder config: a confirmation phrase is required")
var ErrServerAddrRequired = errors.New("sitebuilder config: server addr is required")
var ErrDomainSuffixInvalid = errors.New("sitebuilder config: server domain_suffix must not start with a dot")

// ErrStorageDriverUnknown reports an unsupported storage driver.
var ErrStorageDriverUnknown = errors.New("sitebuilder config: storage driver is invalid")

// ErrStorageDSNRequired ensures sql drivers carry a connection string.
var ErrStorageDSNRequired = errors.New("sitebuilder config: storage dsn is required for sql drivers")

// ErrCacheTTLInvalid keeps the cached repository from being built with a negative TTL.
var ErrCacheTTLInvalid = errors.New("sitebuilder config: cache default_ttl must be zero or positive")
var ErrLoggingProviderRequired = errors.New("sitebuilder config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("sitebuilder config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("sitebuilder config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("sitebuilder config: logging format is invalid")

// Storage drivers understood by the website repository.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultConfirmationPhrase is the reset phrase used when none is configured.
const DefaultConfirmationPhrase = sites.DefaultConfirmationPhrase

// Duration decodes TOML strings such as "400ms" into a time.Duration.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config aggregates the settings of the builder client, the reference server
// and their shared adapters.
type Config struct {
	API      APIConfig      `toml:"api"`
	Builder  BuilderConfig  `toml:"builder"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Cache    CacheConfig    `toml:"cache"`
	Podcasts PodcastsConfig `toml:"podcasts"`
	Markdown MarkdownConfig `toml:"markdown"`
	Logging  LoggingConfig  `toml:"logging"`
	Features Features       `toml:"features"`
}

// APIConfig points the client at a sites backend.
type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Token   string   `toml:"token"`
	Timeout Duration `toml:"timeout"`
}

// BuilderConfig tunes the interactive builder session.
type BuilderConfig struct {
	PreviewDelay       Duration `toml:"preview_delay"`
	DragThreshold      float64  `toml:"drag_threshold"`
	ConfirmationPhrase string   `toml:"confirmation_phrase"`
	AutoPreview        bool     `toml:"auto_preview"`
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	Addr               string              `toml:"addr"`
	DomainSuffix       string              `toml:"domain_suffix"`
	ConfirmationPhrase string              `toml:"confirmation_phrase"`
	Tokens             map[string][]string `toml:"tokens"`
}

// StorageConfig selects the website repository backend.
type StorageConfig struct {
	Driver      string `toml:"driver"`
	DSN         string `toml:"dsn"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

// CacheConfig captures cache behaviour toggles.
type CacheConfig struct {
	Enabled    bool     `toml:"enabled"`
	DefaultTTL Duration `toml:"default_ttl"`
}

// PodcastsConfig locates podcast metadata for generation and previews.
type PodcastsConfig struct {
	File     string `toml:"file"`
	PagesDir string `toml:"pages_dir"`
}

// MarkdownConfig mirrors markdown.Options.
type MarkdownConfig struct {
	Extensions []string `toml:"extensions"`
	HardWraps  bool     `toml:"hard_wraps"`
	Unsafe     bool     `toml:"unsafe"`
}

// Features toggles module functionality.
type Features struct {
	Logger   bool `toml:"logger"`
	Commands bool `toml:"commands"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `toml:"provider"`
	Level     string   `toml:"level"`
	Format    string   `toml:"format"`
	AddSource bool     `toml:"add_source"`
	Focus     []string `toml:"focus"`
}

// DefaultConfig returns defaults suitable for local development.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8080",
			Timeout: Duration(10 * time.Second),
		},
		Builder: BuilderConfig{
			PreviewDelay:       Duration(400 * time.Millisecond),
			DragThreshold:      4,
			ConfirmationPhrase: DefaultConfirmationPhrase,
			AutoPreview:        true,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			DomainSuffix:       "podcastsites.local",
			ConfirmationPhrase: DefaultConfirmationPhrase,
			Tokens:             map[string][]string{},
		},
		Storage: StorageConfig{
			Driver:      DriverMemory,
			AutoMigrate: true,
		},
		Cache: CacheConfig{
			Enabled:    false,
			DefaultTTL: Duration(time.Minute),
		},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "info",
			Format:   "console",
		},
		Features: Features{
			Logger:   true,
			Commands: true,
		},
	}
}

// Load decodes the TOML file at path over DefaultConfig and validates the
// result. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML bytes over DefaultConfig and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Logging.Provider = normalizeProvider(cfg.Logging.Provider)
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.Server.Tokens == nil {
		cfg.Server.Tokens = map[string][]string{}
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if base := strings.TrimSpace(cfg.API.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%w: %s", ErrAPIBaseURLInvalid, base)
		}
	}
	if cfg.API.Timeout < 0 {
		return ErrAPITimeoutInvalid
	}
	if cfg.Builder.PreviewDelay < 0 {
		return ErrPreviewDelayInvalid
	}
	if cfg.Builder.DragThreshold < 0 {
		return ErrDragThresholdInvalid
	}
	if strings.TrimSpace(cfg.Builder.ConfirmationPhrase) == "" || strings.TrimSpace(cfg.Server.ConfirmationPhrase) == "" {
		return ErrConfirmationPhraseRequired
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return ErrServerAddrRequired
	}
	if strings.HasPrefix(strings.TrimSpace(cfg.Server.DomainSuffix), ".") {
		return ErrDomainSuffixInvalid
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrStorageDriverUnknown, cfg.Storage.Driver)
	}
	if cfg.Cache.DefaultTTL < 0 {
		return ErrCacheTTLInvalid
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "gologger", "noop":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
