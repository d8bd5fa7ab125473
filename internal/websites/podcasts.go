package websites

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// Podcast is the metadata a website is generated from.
type Podcast struct {
	ID          string          `json:"id" toml:"id"`
	Title       string          `json:"title" toml:"title"`
	Description string          `json:"description" toml:"description"`
	Author      string          `json:"author" toml:"author"`
	ImageURL    string          `json:"imageUrl" toml:"image_url"`
	Email       string          `json:"email" toml:"email"`
	Episodes    []sites.Episode `json:"episodes" toml:"episodes"`
	Pages       []sites.Page    `json:"pages" toml:"pages"`
}

// PodcastSource resolves podcast metadata. Unknown podcasts return a
// *NotFoundError.
type PodcastSource interface {
	Podcast(ctx context.Context, podcastID string) (*Podcast, error)
}

// MemoryPodcastSource serves podcasts registered with Put.
type MemoryPodcastSource struct {
	mu       sync.RWMutex
	podcasts map[string]Podcast
}

// NewMemoryPodcastSource returns a source seeded with podcasts.
func NewMemoryPodcastSource(podcasts ...Podcast) *MemoryPodcastSource {
	src := &MemoryPodcastSource{podcasts: make(map[string]Podcast, len(podcasts))}
	for _, podcast := range podcasts {
		src.Put(podcast)
	}
	return src
}

// Put registers or replaces a podcast.
func (m *MemoryPodcastSource) Put(podcast Podcast) {
	id := strings.TrimSpace(podcast.ID)
	if id == "" {
		return
	}
	podcast.ID = id
	m.mu.Lock()
	m.podcasts[id] = clonePodcast(podcast)
	m.mu.Unlock()
}

func (m *MemoryPodcastSource) Podcast(_ context.Context, podcastID string) (*Podcast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	podcast, ok := m.podcasts[strings.TrimSpace(podcastID)]
	if !ok {
		return nil, &NotFoundError{Resource: "podcast", Key: podcastID}
	}
	cloned := clonePodcast(podcast)
	return &cloned, nil
}

func clonePodcast(p Podcast) Podcast {
	p.Episodes = slices.Clone(p.Episodes)
	p.Pages = slices.Clone(p.Pages)
	return p
}
