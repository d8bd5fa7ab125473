package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/goliatone/go-slug"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// PageDocument is a page file split into navigation metadata and body.
type PageDocument struct {
	Page sites.Page
	Path string
	Body []byte
}

type pageFrontMatter struct {
	ID    string `yaml:"id" toml:"id"`
	Title string `yaml:"title" toml:"title"`
	Slug  string `yaml:"slug" toml:"slug"`
	Home  bool   `yaml:"home" toml:"home"`
	Order int    `yaml:"order" toml:"order"`
}

// ParsePage reads the front matter of one page file. Missing slugs are derived
// from the title, then from the file name.
func ParsePage(name string, source []byte) (PageDocument, error) {
	var meta pageFrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return PageDocument{}, fmt.Errorf("markdown page %s: parse frontmatter: %w", name, err)
	}

	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = base
	}
	pageSlug := strings.TrimSpace(meta.Slug)
	if pageSlug == "" {
		candidate := title
		if candidate == "" {
			candidate = base
		}
		if pageSlug, err = slug.Normalize(candidate); err != nil || pageSlug == "" {
			pageSlug = base
		}
	}
	id := strings.TrimSpace(meta.ID)
	if id == "" {
		id = pageSlug
	}

	return PageDocument{
		Page: sites.Page{
			ID:     id,
			Title:  title,
			Slug:   pageSlug,
			IsHome: meta.Home,
			Order:  meta.Order,
		},
		Path: name,
		Body: body,
	}, nil
}

// LoadPages parses every *.md file directly under dir. Pages are sorted by
// their order key, then by slug.
func LoadPages(ctx context.Context, fsys fs.FS, dir string) ([]PageDocument, error) {
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("markdown pages %s: %w", dir, err)
	}

	var docs []PageDocument
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(path.Ext(entry.Name()), ".md") {
			continue
		}
		name := path.Join(dir, entry.Name())
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("markdown pages read %s: %w", name, err)
		}
		doc, err := ParsePage(name, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Page.Order != docs[j].Page.Order {
			return docs[i].Page.Order < docs[j].Page.Order
		}
		return docs[i].Page.Slug < docs[j].Page.Slug
	})
	return docs, nil
}

// Pages returns the navigation entries of docs.
func Pages(docs []PageDocument) []sites.Page {
	out := make([]sites.Page, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Page)
	}
	return out
}
