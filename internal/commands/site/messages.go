package sitecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	generateSiteMessageType       = "sitebuilder.site.generate"
	updateThemeMessageType        = "sitebuilder.site.theme"
	publishSiteMessageType        = "sitebuilder.site.publish"
	resetSiteMessageType          = "sitebuilder.site.reset"
	reorderSectionsMessageType    = "sitebuilder.site.sections.reorder"
	toggleSectionMessageType      = "sitebuilder.site.sections.toggle"
	patchSectionConfigMessageType = "sitebuilder.site.sections.config"
	previewSiteMessageType        = "sitebuilder.site.preview"
)

// GenerateSiteCommand creates a website for a podcast, or rebuilds it when Regenerate is set.
type GenerateSiteCommand struct {
	PodcastID  string `json:"podcast_id"`
	Regenerate bool   `json:"regenerate,omitempty"`
}

// Type implements command.Message.
func (GenerateSiteCommand) Type() string { return generateSiteMessageType }

// SiteFields implements commands.SiteScoped.
func (m GenerateSiteCommand) SiteFields() map[string]any { return podcastFields(m.PodcastID) }

// Validate implements command.Message.
func (m GenerateSiteCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, generateSiteMessageType)
	return result(errs)
}

// UpdateThemeCommand replaces the global CSS, or asks the server for a fresh theme.
type UpdateThemeCommand struct {
	PodcastID string  `json:"podcast_id"`
	CSS       *string `json:"css,omitempty"`
	Generate  bool    `json:"generate,omitempty"`
}

// Type implements command.Message.
func (UpdateThemeCommand) Type() string { return updateThemeMessageType }

// SiteFields implements commands.SiteScoped.
func (m UpdateThemeCommand) SiteFields() map[string]any { return podcastFields(m.PodcastID) }

// Validate implements command.Message.
func (m UpdateThemeCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, updateThemeMessageType)
	if m.CSS == nil && !m.Generate {
		errs["css"] = validation.NewError(updateThemeMessageType+".css_required", "css is required unless generate is set")
	}
	if m.CSS != nil && m.Generate {
		errs["generate"] = validation.NewError(updateThemeMessageType+".exclusive", "css and generate are mutually exclusive")
	}
	return result(errs)
}

// PublishSiteCommand publishes a website, or unpublishes it back to draft.
type PublishSiteCommand struct {
	PodcastID string `json:"podcast_id"`
	Unpublish bool   `json:"unpublish,omitempty"`
}

// Type implements command.Message.
func (PublishSiteCommand) Type() string { return publishSiteMessageType }

// SiteFields implements commands.SiteScoped.
func (m PublishSiteCommand) SiteFields() map[string]any { return podcastFields(m.PodcastID) }

// Validate implements command.Message.
func (m PublishSiteCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, publishSiteMessageType)
	return result(errs)
}

// ResetSiteCommand discards a website and recreates it from defaults.
type ResetSiteCommand struct {
	PodcastID          string `json:"podcast_id"`
	ConfirmationPhrase string `json:"confirmation_phrase"`
}

// Type implements command.Message.
func (ResetSiteCommand) Type() string { return resetSiteMessageType }

// SiteFields implements commands.SiteScoped.
func (m ResetSiteCommand) SiteFields() map[string]any { return podcastFields(m.PodcastID) }

// Validate implements command.Message. The phrase itself is checked by the server.
func (m ResetSiteCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, resetSiteMessageType)
	if strings.TrimSpace(m.ConfirmationPhrase) == "" {
		errs["confirmation_phrase"] = validation.NewError(resetSiteMessageType+".phrase_required", "confirmation_phrase is required")
	}
	return result(errs)
}

// ReorderSectionsCommand replaces the section order.
type ReorderSectionsCommand struct {
	PodcastID string   `json:"podcast_id"`
	Order     []string `json:"order"`
}

// Type implements command.Message.
func (ReorderSectionsCommand) Type() string { return reorderSectionsMessageType }

// SiteFields implements commands.SiteScoped.
func (m ReorderSectionsCommand) SiteFields() map[string]any { return podcastFields(m.PodcastID) }

// Validate implements command.Message.
func (m ReorderSectionsCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, reorderSectionsMessageType)
	if len(m.Order) == 0 {
		errs["order"] = validation.NewError(reorderSectionsMessageType+".order_required", "order must list at least one section")
	}
	seen := make(map[string]struct{}, len(m.Order))
	for _, id := range m.Order {
		if strings.TrimSpace(id) == "" {
			errs["order"] = validation.NewError(reorderSectionsMessageType+".blank_id", "order contains a blank section id")
			break
		}
		if _, dup := seen[id]; dup {
			errs["order"] = validation.NewError(reorderSectionsMessageType+".duplicate_id", "order contains section "+id+" twice")
			break
		}
		seen[id] = struct{}{}
	}
	return result(errs)
}

// ToggleSectionCommand enables or disables a single section.
type ToggleSectionCommand struct {
	PodcastID string `json:"podcast_id"`
	SectionID string `json:"section_id"`
	Enabled   bool   `json:"enabled"`
}

// Type implements command.Message.
func (ToggleSectionCommand) Type() string { return toggleSectionMessageType }

// SiteFields implements commands.SiteScoped.
func (m ToggleSectionCommand) SiteFields() map[string]any {
	return sectionFields(m.PodcastID, m.SectionID)
}

// Validate implements command.Message.
func (m ToggleSectionCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, toggleSectionMessageType)
	requireSection(errs, m.SectionID, toggleSectionMessageType)
	return result(errs)
}

// PatchSectionConfigCommand replaces one section's config.
type PatchSectionConfigCommand struct {
	PodcastID string         `json:"podcast_id"`
	SectionID string         `json:"section_id"`
	Config    map[string]any `json:"config"`
}

// Type implements command.Message.
func (PatchSectionConfigCommand) Type() string { return patchSectionConfigMessageType }

// SiteFields implements commands.SiteScoped.
func (m PatchSectionConfigCommand) SiteFields() map[string]any {
	return sectionFields(m.PodcastID, m.SectionID)
}

// Validate implements command.Message.
func (m PatchSectionConfigCommand) Validate() error {
	errs := validation.Errors{}
	requirePodcast(errs, m.PodcastID, patchSectionConfigMessageType)
	requireSection(errs, m.SectionID, patchSectionConfigMessageType)
	if m.Config == nil {
		errs["config"] = validation.NewError(patchSectionConfigMessageType+".config_required", "config is required")
	}
	return result(errs)
}

// PreviewSiteCommand fetches the preview snapshot served for a subdomain.
type PreviewSiteCommand struct {
	Subdomain string `json:"subdomain"`
}

// Type implements command.Message.
func (PreviewSiteCommand) Type() string { return previewSiteMessageType }

// SiteFields implements commands.SiteScoped.
func (m PreviewSiteCommand) SiteFields() map[string]any {
	return map[string]any{"subdomain": m.Subdomain}
}

// Validate implements command.Message.
func (m PreviewSiteCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.Subdomain) == "" {
		errs["subdomain"] = validation.NewError(previewSiteMessageType+".subdomain_required", "subdomain is required")
	}
	return result(errs)
}

func podcastFields(podcastID string) map[string]any {
	return map[string]any{"podcast_id": podcastID}
}

func sectionFields(podcastID, sectionID string) map[string]any {
	return map[string]any{"podcast_id": podcastID, "section_id": sectionID}
}

func requirePodcast(errs validation.Errors, podcastID, prefix string) {
	if strings.TrimSpace(podcastID) == "" {
		errs["podcast_id"] = validation.NewError(prefix+".podcast_id_required", "podcast_id is required")
	}
}

func requireSection(errs validation.Errors, sectionID, prefix string) {
	if strings.TrimSpace(sectionID) == "" {
		errs["section_id"] = validation.NewError(prefix+".section_id_required", "section_id is required")
	}
}

func result(errs validation.Errors) error {
	if len(errs) > 0 {
		return errs
	}
	return nil
}
