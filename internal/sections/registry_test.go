package sections

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	raw     []json.RawMessage
	err     error
}

func (s *countingSource) ListDefinitions(ctx context.Context) ([]json.RawMessage, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.raw, s.err
}

func catalogSource(t *testing.T) *countingSource {
	t.Helper()
	raw, err := EncodeCatalog(DefaultCatalog())
	if err != nil {
		t.Fatalf("encode catalog: %v", err)
	}
	return &countingSource{raw: raw}
}

func TestRegistryFetchesOncePerSession(t *testing.T) {
	source := catalogSource(t)
	registry := NewRegistry(source)

	for i := 0; i < 3; i++ {
		defs, err := registry.Load(context.Background())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(defs) != len(DefaultCatalog()) {
			t.Fatalf("expected %d definitions, got %d", len(DefaultCatalog()), len(defs))
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
	if _, ok := registry.Lookup("hero"); !ok {
		t.Fatalf("expected hero definition to be cached")
	}
	if _, ok := registry.Lookup("nope"); ok {
		t.Fatalf("expected unknown definition lookup to miss")
	}
}

func TestRegistrySharesConcurrentFetch(t *testing.T) {
	source := catalogSource(t)
	source.release = make(chan struct{})
	registry := NewRegistry(source)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Load(context.Background())
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected a single shared fetch, got %d", got)
	}
}

func TestRegistrySkipsInvalidDefinitions(t *testing.T) {
	source := &countingSource{raw: []json.RawMessage{
		json.RawMessage(`{"id":"hero","label":"Hero","requiredFields":[{"name":"title","type":"text"}]}`),
		json.RawMessage(`{"id":"broken","optionalFields":[{"name":"layout","type":"select"}]}`),
		json.RawMessage(`{"id":"hero","label":"Duplicate"}`),
	}}
	registry := NewRegistry(source)
	defs, err := registry.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != "hero" || defs[0].Label != "Hero" {
		t.Fatalf("unexpected definitions %+v", defs)
	}
	if _, ok := registry.Lookup("broken"); ok {
		t.Fatalf("expected invalid definition to be dropped")
	}
}

func TestRegistryDoesNotCacheFailures(t *testing.T) {
	source := &countingSource{err: errors.New("boom")}
	registry := NewRegistry(source)
	if _, err := registry.Load(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
	if registry.Loaded() {
		t.Fatalf("expected failed fetch to leave registry empty")
	}
	source.err = nil
	source.raw = []json.RawMessage{json.RawMessage(`{"id":"faq"}`)}
	defs, err := registry.Load(context.Background())
	if err != nil || len(defs) != 1 {
		t.Fatalf("expected retry to succeed, got %v (%d defs)", err, len(defs))
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected two fetches, got %d", got)
	}
}

func TestRegistryLoadHonoursContext(t *testing.T) {
	source := catalogSource(t)
	source.release = make(chan struct{})
	defer close(source.release)
	registry := NewRegistry(source)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := registry.Load(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRegistryInvalidateForcesRefetch(t *testing.T) {
	source := catalogSource(t)
	registry := NewRegistry(source, WithTTL(time.Hour))
	if _, err := registry.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	registry.Invalidate()
	if registry.Loaded() {
		t.Fatalf("expected invalidate to clear the catalog")
	}
	if _, err := registry.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", got)
	}
}

func TestRegistryWithoutSource(t *testing.T) {
	registry := NewRegistry(nil)
	if _, err := registry.Load(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}
