package websites

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tgdscott/DoneCast-sub013/internal/markdown"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

type podcastFile struct {
	Podcasts []podcastEntry `toml:"podcasts"`
}

type podcastEntry struct {
	ID          string         `toml:"id"`
	Title       string         `toml:"title"`
	Description string         `toml:"description"`
	Author      string         `toml:"author"`
	ImageURL    string         `toml:"image_url"`
	Email       string         `toml:"email"`
	Episodes    []episodeEntry `toml:"episodes"`
}

type episodeEntry struct {
	ID          string     `toml:"id"`
	Title       string     `toml:"title"`
	Description string     `toml:"description"`
	AudioURL    string     `toml:"audio_url"`
	ImageURL    string     `toml:"image_url"`
	PublishedAt *time.Time `toml:"published_at"`
}

// LoadPodcastFile reads a TOML podcast catalog from fsys. When pagesDir is set,
// Markdown pages under pagesDir/<podcast id>/ become the podcast's navigation
// pages; a podcast without a pages directory has none.
func LoadPodcastFile(ctx context.Context, fsys fs.FS, file, pagesDir string) (*MemoryPodcastSource, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("websites: read podcasts %s: %w", file, err)
	}
	var decoded podcastFile
	if err := toml.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("websites: parse podcasts %s: %w", file, err)
	}

	src := NewMemoryPodcastSource()
	for _, entry := range decoded.Podcasts {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("websites: podcasts %s: %w", file, ErrPodcastRequired)
		}
		podcast := Podcast{
			ID:          id,
			Title:       entry.Title,
			Description: entry.Description,
			Author:      entry.Author,
			ImageURL:    entry.ImageURL,
			Email:       entry.Email,
		}
		for _, ep := range entry.Episodes {
			podcast.Episodes = append(podcast.Episodes, sites.Episode{
				ID:          ep.ID,
				Title:       ep.Title,
				Description: ep.Description,
				AudioURL:    ep.AudioURL,
				ImageURL:    ep.ImageURL,
				PublishedAt: ep.PublishedAt,
			})
		}
		if pagesDir != "" {
			docs, err := markdown.LoadPages(ctx, fsys, path.Join(pagesDir, id))
			switch {
			case errors.Is(err, fs.ErrNotExist):
			case err != nil:
				return nil, err
			default:
				podcast.Pages = markdown.Pages(docs)
			}
		}
		src.Put(podcast)
	}
	return src, nil
}
