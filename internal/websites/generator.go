package websites

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/tgdscott/DoneCast-sub013/internal/sections"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// Theme is the generated look of a website.
type Theme struct {
	GlobalCSS string
	Metadata  map[string]any
}

// ContentGenerator derives sections and theme from podcast metadata.
// DefaultGenerator is deterministic.
type ContentGenerator interface {
	Sections(ctx context.Context, podcast Podcast, defs []sections.Definition) (sites.SectionState, error)
	Theme(ctx context.Context, podcast Podcast, variant int) (Theme, error)
}

type palette struct {
	name       string
	accent     string
	background string
	text       string
}

var palettes = []palette{
	{name: "ember", accent: "#ff6600", background: "#fffaf5", text: "#1f1a17"},
	{name: "ocean", accent: "#0077b6", background: "#f4fbff", text: "#0b1d2a"},
	{name: "forest", accent: "#2d6a4f", background: "#f6fbf7", text: "#10231a"},
	{name: "plum", accent: "#7b2cbf", background: "#fbf7ff", text: "#1e1029"},
	{name: "slate", accent: "#334155", background: "#f8fafc", text: "#0f172a"},
}

// DefaultGenerator fills the catalog defaults with podcast metadata and picks
// a palette from the podcast id.
type DefaultGenerator struct{}

func (DefaultGenerator) Sections(_ context.Context, podcast Podcast, defs []sections.Definition) (sites.SectionState, error) {
	state := sections.InitialState(defs)
	title := strings.TrimSpace(podcast.Title)
	if title == "" {
		title = podcast.ID
	}
	fill := func(id, field string, value any) {
		cfg, ok := state.Config[id]
		if !ok {
			return
		}
		if text, isText := value.(string); isText && strings.TrimSpace(text) == "" {
			return
		}
		cfg[field] = value
	}
	fill("header", "title", title)
	fill("header", "logo", podcast.ImageURL)
	fill("hero", "title", title)
	fill("hero", "subtitle", podcast.Description)
	fill("hero", "background_image", podcast.ImageURL)
	fill("about", "body", podcast.Description)
	if author := strings.TrimSpace(podcast.Author); author != "" {
		fill("footer", "copyright", "© "+author)
	}
	return state, nil
}

func (DefaultGenerator) Theme(_ context.Context, podcast Podcast, variant int) (Theme, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(podcast.ID))
	index := (int(h.Sum32()%uint32(len(palettes))) + variant) % len(palettes)
	if index < 0 {
		index += len(palettes)
	}
	p := palettes[index]
	css := fmt.Sprintf(":root{--accent:%s;--background:%s;--text:%s}", p.accent, p.background, p.text)
	return Theme{
		GlobalCSS: css,
		Metadata: map[string]any{
			"palette":    p.name,
			"accent":     p.accent,
			"background": p.background,
			"text":       p.text,
			"variant":    variant,
		},
	}, nil
}
