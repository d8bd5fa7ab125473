package sites

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tgdscott/DoneCast-sub013/internal/domain"
)

// Website is the single generated site belonging to a podcast.
type Website struct {
	ID              uuid.UUID      `json:"id"`
	PodcastID       string         `json:"podcastId"`
	Status          domain.Status  `json:"status"`
	Subdomain       string         `json:"subdomain"`
	DefaultDomain   string         `json:"defaultDomain"`
	CustomDomain    *string        `json:"customDomain,omitempty"`
	GlobalCSS       string         `json:"globalCss"`
	ThemeMetadata   map[string]any `json:"themeMetadata,omitempty"`
	LastGeneratedAt *time.Time     `json:"lastGeneratedAt,omitempty"`
}

// Clone returns a deep copy of the website.
func (w *Website) Clone() *Website {
	if w == nil {
		return nil
	}
	cloned := *w
	if w.CustomDomain != nil {
		value := *w.CustomDomain
		cloned.CustomDomain = &value
	}
	if w.LastGeneratedAt != nil {
		value := *w.LastGeneratedAt
		cloned.LastGeneratedAt = &value
	}
	cloned.ThemeMetadata = CloneConfig(w.ThemeMetadata)
	return &cloned
}

// SectionState is the ordered section list of a website: the wire shape of
// GET/PATCH /websites/{podcastId}/sections and the content of the draft store.
type SectionState struct {
	Order   []string                  `json:"order"`
	Enabled map[string]bool           `json:"enabled"`
	Config  map[string]map[string]any `json:"config"`
}

var (
	ErrDuplicateSectionID = errors.New("sites: duplicate section id")
	ErrBlankSectionID     = errors.New("sites: blank section id")
	ErrDanglingSection    = errors.New("sites: section state references unknown id")
)

// Validate ensures ids are unique and non-blank and that the enabled/config maps
// only reference ids present in Order.
func (s SectionState) Validate() error {
	seen := make(map[string]struct{}, len(s.Order))
	for _, id := range s.Order {
		if strings.TrimSpace(id) == "" {
			return ErrBlankSectionID
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSectionID, id)
		}
		seen[id] = struct{}{}
	}
	for id := range s.Enabled {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: enabled[%s]", ErrDanglingSection, id)
		}
	}
	for id := range s.Config {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: config[%s]", ErrDanglingSection, id)
		}
	}
	return nil
}

// Clone returns a deep copy of the state. Nil maps are normalised to empty maps.
func (s SectionState) Clone() SectionState {
	out := SectionState{
		Order:   append([]string(nil), s.Order...),
		Enabled: make(map[string]bool, len(s.Enabled)),
		Config:  make(map[string]map[string]any, len(s.Config)),
	}
	if out.Order == nil {
		out.Order = []string{}
	}
	maps.Copy(out.Enabled, s.Enabled)
	for id, cfg := range s.Config {
		out.Config[id] = CloneConfig(cfg)
	}
	return out
}

// CloneConfig deep copies a config blob, recursing through nested maps and slices.
func CloneConfig(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return CloneConfig(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

// Page is an opaque navigation entry owned by the page CRUD collaborator.
type Page struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	IsHome bool   `json:"isHome"`
	Order  int    `json:"order"`
}

// Episode is the resolved episode data a preview renders.
type Episode struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AudioURL    string     `json:"audioUrl,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// PreviewSection is one enabled section in composed render order.
type PreviewSection struct {
	ID       string            `json:"id"`
	Label    string            `json:"label,omitempty"`
	Config   map[string]any    `json:"config"`
	Rendered map[string]string `json:"rendered,omitempty"`
}

// PreviewSnapshot mirrors what the public renderer would show if published now.
type PreviewSnapshot struct {
	Sections  []PreviewSection `json:"sections"`
	Episodes  []Episode        `json:"episodes"`
	GlobalCSS string           `json:"globalCss"`
	Pages     []Page           `json:"pages"`
}

// GenerateRequest is the body of POST /websites/{podcastId}.
type GenerateRequest struct {
	Regenerate bool `json:"regenerate,omitempty"`
}

// CSSRequest is the body of PATCH /websites/{podcastId}/css. When Generate is true
// the server recomputes the theme and CSS and ignores CSS.
type CSSRequest struct {
	CSS      *string `json:"css,omitempty"`
	Generate bool    `json:"generate,omitempty"`
}

// PublishRequest is the body of POST /websites/{podcastId}/publish.
type PublishRequest struct {
	Unpublish bool `json:"unpublish"`
}

// DefaultConfirmationPhrase must be typed verbatim to reset a website.
const DefaultConfirmationPhrase = "here comes the boom"

// ResetRequest is the body of POST /websites/{podcastId}/reset.
type ResetRequest struct {
	ConfirmationPhrase string `json:"confirmationPhrase"`
}

// OrderRequest is the body of PATCH /websites/{podcastId}/sections/order.
type OrderRequest struct {
	Order []string `json:"order"`
}

// ToggleRequest is the body of PATCH /websites/{podcastId}/sections/{id}/toggle.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// ConfigRequest is the body of PATCH /websites/{podcastId}/sections/{id}/config.
type ConfigRequest struct {
	Config map[string]any `json:"config"`
}

// SiteBundle is the response of generate and reset: the website plus its sections.
type SiteBundle struct {
	Website  *Website     `json:"website"`
	Sections SectionState `json:"sections"`
}

// Validate checks the bundle is complete enough to replace local state.
func (b *SiteBundle) Validate() error {
	if b == nil || b.Website == nil {
		return ErrIncompleteResponse
	}
	if strings.TrimSpace(b.Website.PodcastID) == "" {
		return fmt.Errorf("%w: website podcast id missing", ErrIncompleteResponse)
	}
	return b.Sections.Validate()
}

// ErrIncompleteResponse indicates a server response could not be applied.
var ErrIncompleteResponse = errors.New("sites: incomplete server response")
