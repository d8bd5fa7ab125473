package websites

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

const catalogTOML = `
[[podcasts]]
id = "pod-1"
title = "My Show"
author = "Ana"

[[podcasts.episodes]]
id = "e1"
title = "Pilot"
audio_url = "https://cdn.example.com/e1.mp3"
published_at = 2024-05-01T10:00:00Z

[[podcasts]]
id = "pod-2"
title = "Other Show"
`

func TestLoadPodcastFile(t *testing.T) {
	fsys := fstest.MapFS{
		"podcasts.toml":         {Data: []byte(catalogTOML)},
		"pages/pod-1/about.md":  {Data: []byte("---\ntitle: About us\norder: 2\n---\nHi")},
		"pages/pod-1/index.md":  {Data: []byte("---\ntitle: Home\nhome: true\norder: 1\n---\nWelcome")},
		"pages/pod-1/notes.txt": {Data: []byte("ignored")},
	}
	src, err := LoadPodcastFile(context.Background(), fsys, "podcasts.toml", "pages")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	podcast, err := src.Podcast(context.Background(), "pod-1")
	if err != nil {
		t.Fatalf("podcast: %v", err)
	}
	if podcast.Title != "My Show" || podcast.Author != "Ana" {
		t.Fatalf("unexpected podcast %+v", podcast)
	}
	if len(podcast.Episodes) != 1 || podcast.Episodes[0].AudioURL != "https://cdn.example.com/e1.mp3" || podcast.Episodes[0].PublishedAt == nil {
		t.Fatalf("unexpected episodes %+v", podcast.Episodes)
	}
	if len(podcast.Pages) != 2 || !podcast.Pages[0].IsHome || podcast.Pages[1].Slug != "about-us" {
		t.Fatalf("unexpected pages %+v", podcast.Pages)
	}

	other, err := src.Podcast(context.Background(), "pod-2")
	if err != nil || len(other.Pages) != 0 {
		t.Fatalf("expected pod-2 without pages, got %+v / %v", other, err)
	}
}

func TestLoadPodcastFileErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := LoadPodcastFile(ctx, fstest.MapFS{}, "podcasts.toml", ""); err == nil {
		t.Fatal("expected missing file error")
	}
	bad := fstest.MapFS{"podcasts.toml": {Data: []byte("[[podcasts]]\ntitle = \"No id\"\n")}}
	if _, err := LoadPodcastFile(ctx, bad, "podcasts.toml", ""); !errors.Is(err, ErrPodcastRequired) {
		t.Fatalf("expected ErrPodcastRequired, got %v", err)
	}
}
