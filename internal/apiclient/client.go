// Package apiclient implements the sites REST contract over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrBaseURLRequired is returned by New when no base URL is configured.
var ErrBaseURLRequired = errors.New("apiclient: base url required")

var _ interfaces.SitesAPI = (*Client)(nil)

// Config captures the settings required to reach the sites API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is an interfaces.SitesAPI backed by net/http. Every request carries
// the bearer token and every failure unwraps to the sites error taxonomy.
type Client struct {
	base       *url.URL
	token      string
	httpClient *http.Client
	logger     interfaces.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, ErrBaseURLRequired
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		base:       base,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func websitePath(podcastID string, parts ...string) string {
	segments := append([]string{"websites", url.PathEscape(podcastID)}, parts...)
	return "/" + strings.Join(segments, "/")
}

func (c *Client) ListDefinitions(ctx context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/sections/definitions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWebsite(ctx context.Context, podcastID string) (*sites.Website, error) {
	var out sites.Website
	if err := c.do(ctx, http.MethodGet, websitePath(podcastID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSections(ctx context.Context, podcastID string) (*sites.SectionState, error) {
	return c.sections(ctx, http.MethodGet, websitePath(podcastID, "sections"), nil)
}

func (c *Client) PatchSections(ctx context.Context, podcastID string, state sites.SectionState) (*sites.SectionState, error) {
	return c.sections(ctx, http.MethodPatch, websitePath(podcastID, "sections"), state)
}

func (c *Client) PatchOrder(ctx context.Context, podcastID string, order []string) (*sites.SectionState, error) {
	return c.sections(ctx, http.MethodPatch, websitePath(podcastID, "sections", "order"), sites.OrderRequest{Order: order})
}

func (c *Client) PatchToggle(ctx context.Context, podcastID, sectionID string, enabled bool) (*sites.SectionState, error) {
	path := websitePath(podcastID, "sections", url.PathEscape(sectionID), "toggle")
	return c.sections(ctx, http.MethodPatch, path, sites.ToggleRequest{Enabled: enabled})
}

func (c *Client) PatchConfig(ctx context.Context, podcastID, sectionID string, config map[string]any) (*sites.SectionState, error) {
	path := websitePath(podcastID, "sections", url.PathEscape(sectionID), "config")
	return c.sections(ctx, http.MethodPatch, path, sites.ConfigRequest{Config: config})
}

func (c *Client) sections(ctx context.Context, method, path string, body any) (*sites.SectionState, error) {
	var out sites.SectionState
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateWebsite(ctx context.Context, podcastID string, req sites.GenerateRequest) (*sites.SiteBundle, error) {
	var out sites.SiteBundle
	if err := c.do(ctx, http.MethodPost, websitePath(podcastID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCSS(ctx context.Context, podcastID string, req sites.CSSRequest) (*sites.Website, error) {
	var out sites.Website
	if err := c.do(ctx, http.MethodPatch, websitePath(podcastID, "css"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Publish(ctx context.Context, podcastID string, req sites.PublishRequest) (*sites.Website, error) {
	var out sites.Website
	if err := c.do(ctx, http.MethodPost, websitePath(podcastID, "publish"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reset(ctx context.Context, podcastID string, req sites.ResetRequest) (*sites.SiteBundle, error) {
	var out sites.SiteBundle
	if err := c.do(ctx, http.MethodPost, websitePath(podcastID, "reset"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Preview(ctx context.Context, subdomain string) (*sites.PreviewSnapshot, error) {
	var out sites.PreviewSnapshot
	path := "/sites/" + url.PathEscape(subdomain) + "/preview"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// errorBody is the JSON error envelope written by the sites API.
type errorBody struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("apiclient.request.failed", "method", method, "path", path, "error", err)
		return &sites.APIError{Method: method, Path: path, Kind: sites.ErrTransient, Cause: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("apiclient.request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(started))

	if kind := sites.KindForStatus(resp.StatusCode); kind != nil {
		apiErr := &sites.APIError{Method: method, Path: path, Status: resp.StatusCode, Kind: kind}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var envelope errorBody
		if json.Unmarshal(raw, &envelope) == nil && (envelope.Code != "" || envelope.Message != "") {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &sites.APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Kind:   sites.ErrTransient,
			Cause:  fmt.Errorf("%w: decode body: %v", sites.ErrIncompleteResponse, err),
		}
	}
	return nil
}
