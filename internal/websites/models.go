package websites

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tgdscott/DoneCast-sub013/internal/domain"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/uptrace/bun"
)

// Record is the stored form of a website. Sections are kept as one JSON
// document so an order change rewrites a single row.
type Record struct {
	bun.BaseModel `bun:"table:sitebuilder_websites,alias:w"`

	ID              uuid.UUID          `bun:",pk,type:uuid" json:"id"`
	PodcastID       string             `bun:"podcast_id,notnull,unique" json:"podcast_id"`
	Revision        int                `bun:"revision,notnull" json:"revision"`
	Status          domain.Status      `bun:"status,notnull" json:"status"`
	Subdomain       string             `bun:"subdomain,notnull,unique" json:"subdomain"`
	CustomDomain    *string            `bun:"custom_domain" json:"custom_domain,omitempty"`
	GlobalCSS       string             `bun:"global_css" json:"global_css"`
	ThemeMetadata   map[string]any     `bun:"theme_metadata,type:jsonb" json:"theme_metadata,omitempty"`
	Sections        sites.SectionState `bun:"sections,type:jsonb,notnull" json:"sections"`
	LastGeneratedAt *time.Time         `bun:"last_generated_at" json:"last_generated_at,omitempty"`
	CreatedAt       time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cloned := *r
	if r.CustomDomain != nil {
		value := *r.CustomDomain
		cloned.CustomDomain = &value
	}
	if r.LastGeneratedAt != nil {
		value := *r.LastGeneratedAt
		cloned.LastGeneratedAt = &value
	}
	cloned.ThemeMetadata = sites.CloneConfig(r.ThemeMetadata)
	cloned.Sections = r.Sections.Clone()
	return &cloned
}

// Website projects the record onto the wire model. domainSuffix builds the
// default domain ("<subdomain>.<suffix>").
func (r *Record) Website(domainSuffix string) *sites.Website {
	if r == nil {
		return nil
	}
	website := &sites.Website{
		ID:            r.ID,
		PodcastID:     r.PodcastID,
		Status:        r.Status,
		Subdomain:     r.Subdomain,
		GlobalCSS:     r.GlobalCSS,
		ThemeMetadata: sites.CloneConfig(r.ThemeMetadata),
	}
	if suffix := strings.Trim(strings.TrimSpace(domainSuffix), "."); suffix != "" {
		website.DefaultDomain = r.Subdomain + "." + suffix
	}
	if r.CustomDomain != nil {
		value := *r.CustomDomain
		website.CustomDomain = &value
	}
	if r.LastGeneratedAt != nil {
		value := *r.LastGeneratedAt
		website.LastGeneratedAt = &value
	}
	return website
}
