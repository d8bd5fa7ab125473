package interfaces

import (
	"context"
	"encoding/json"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// SectionDefinitionSource fetches the catalog of section types.
//
//	GET /sections/definitions
type SectionDefinitionSource interface {
	ListDefinitions(ctx context.Context) ([]json.RawMessage, error)
}

// SitesAPI is the remote contract consumed by the builder controllers. Every
// method maps to exactly one REST endpoint; failures unwrap to the sites error
// taxonomy (ErrNotFound, ErrForbidden, ErrRejected, ErrTransient).
type SitesAPI interface {
	SectionDefinitionSource

	// GET /websites/{podcastId}; sites.ErrNotFound when none exists yet.
	GetWebsite(ctx context.Context, podcastID string) (*sites.Website, error)
	// GET /websites/{podcastId}/sections
	GetSections(ctx context.Context, podcastID string) (*sites.SectionState, error)
	// PATCH /websites/{podcastId}/sections
	PatchSections(ctx context.Context, podcastID string, state sites.SectionState) (*sites.SectionState, error)
	// PATCH /websites/{podcastId}/sections/order
	PatchOrder(ctx context.Context, podcastID string, order []string) (*sites.SectionState, error)
	// PATCH /websites/{podcastId}/sections/{id}/toggle
	PatchToggle(ctx context.Context, podcastID, sectionID string, enabled bool) (*sites.SectionState, error)
	// PATCH /websites/{podcastId}/sections/{id}/config
	PatchConfig(ctx context.Context, podcastID, sectionID string, config map[string]any) (*sites.SectionState, error)
	// POST /websites/{podcastId}
	GenerateWebsite(ctx context.Context, podcastID string, req sites.GenerateRequest) (*sites.SiteBundle, error)
	// PATCH /websites/{podcastId}/css
	UpdateCSS(ctx context.Context, podcastID string, req sites.CSSRequest) (*sites.Website, error)
	// POST /websites/{podcastId}/publish
	Publish(ctx context.Context, podcastID string, req sites.PublishRequest) (*sites.Website, error)
	// POST /websites/{podcastId}/reset
	Reset(ctx context.Context, podcastID string, req sites.ResetRequest) (*sites.SiteBundle, error)
	// GET /sites/{subdomain}/preview
	Preview(ctx context.Context, subdomain string) (*sites.PreviewSnapshot, error)
}
