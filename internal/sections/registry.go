package sections

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const (
	catalogKey       = "catalog"
	definitionPrefix = "definition:"
)

// ErrNoSource indicates the registry was built without a definition source.
var ErrNoSource = errors.New("sections: definition source not configured")

// Registry fetches the section catalog once per session and serves lookups
// from memory. Concurrent Load calls share a single fetch.
type Registry struct {
	source interfaces.SectionDefinitionSource
	store  *cache.Cache
	ttl    time.Duration
	logger interfaces.Logger

	mu       sync.Mutex
	inflight *fetchCall
}

type fetchCall struct {
	done chan struct{}
	defs []Definition
	err  error
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithTTL expires the cached catalog after ttl. Zero keeps it for the lifetime
// of the registry.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger interfaces.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry constructs a registry over source.
func NewRegistry(source interfaces.SectionDefinitionSource, opts ...RegistryOption) *Registry {
	r := &Registry{
		source: source,
		ttl:    cache.NoExpiration,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	cleanup := time.Duration(0)
	if r.ttl > 0 {
		cleanup = 2 * r.ttl
	}
	r.store = cache.New(r.ttl, cleanup)
	return r
}

// Load returns the catalog, fetching it when it is not cached.
func (r *Registry) Load(ctx context.Context) ([]Definition, error) {
	if defs, ok := r.cached(); ok {
		return defs, nil
	}

	r.mu.Lock()
	if defs, ok := r.cached(); ok {
		r.mu.Unlock()
		return defs, nil
	}
	call := r.inflight
	if call == nil {
		call = &fetchCall{done: make(chan struct{})}
		r.inflight = call
		go r.fetch(context.WithoutCancel(ctx), call)
	}
	r.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		return cloneDefinitions(call.defs), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) fetch(ctx context.Context, call *fetchCall) {
	defer func() {
		r.mu.Lock()
		r.inflight = nil
		r.mu.Unlock()
		close(call.done)
	}()

	if r.source == nil {
		call.err = ErrNoSource
		return
	}
	raw, err := r.source.ListDefinitions(ctx)
	if err != nil {
		r.logger.Warn("sections.fetch.failed", "error", err)
		call.err = err
		return
	}
	call.defs = r.decode(raw)
	r.Prime(call.defs)
	r.logger.Debug("sections.fetch.completed", "definitions", len(call.defs))
}

func (r *Registry) decode(raw []json.RawMessage) []Definition {
	defs := make([]Definition, 0, len(raw))
	seen := map[string]struct{}{}
	for _, entry := range raw {
		def, err := DecodeDefinition(entry)
		if err != nil {
			r.logger.Warn("sections.definition.rejected", "error", err)
			continue
		}
		if _, ok := seen[def.ID]; ok {
			r.logger.Warn("sections.definition.duplicate", "definition_id", def.ID)
			continue
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs
}

// Prime replaces the cached catalog with defs.
func (r *Registry) Prime(defs []Definition) {
	r.store.Flush()
	stored := cloneDefinitions(defs)
	r.store.Set(catalogKey, stored, cache.DefaultExpiration)
	for _, def := range stored {
		r.store.Set(definitionPrefix+def.ID, def, cache.DefaultExpiration)
	}
}

// Invalidate drops the cached catalog so the next Load fetches again.
func (r *Registry) Invalidate() {
	r.store.Flush()
}

// Loaded reports whether a catalog is cached.
func (r *Registry) Loaded() bool {
	_, ok := r.store.Get(catalogKey)
	return ok
}

// Lookup returns the cached definition for id. It never fetches.
func (r *Registry) Lookup(id string) (Definition, bool) {
	value, ok := r.store.Get(definitionPrefix + id)
	if !ok {
		return Definition{}, false
	}
	def, ok := value.(Definition)
	return def, ok
}

// List returns the cached catalog in source order, or nil before Load.
func (r *Registry) List() []Definition {
	defs, _ := r.cached()
	return defs
}

func (r *Registry) cached() ([]Definition, bool) {
	value, ok := r.store.Get(catalogKey)
	if !ok {
		return nil, false
	}
	defs, ok := value.([]Definition)
	if !ok {
		return nil, false
	}
	return cloneDefinitions(defs), true
}

func cloneDefinitions(defs []Definition) []Definition {
	if defs == nil {
		return nil
	}
	return append([]Definition(nil), defs...)
}

// StaticSource serves a fixed catalog.
type StaticSource []Definition

// ListDefinitions implements interfaces.SectionDefinitionSource.
func (s StaticSource) ListDefinitions(context.Context) ([]json.RawMessage, error) {
	return EncodeCatalog(s)
}

// EncodeCatalog renders definitions in their wire form.
func EncodeCatalog(defs []Definition) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(defs))
	for _, def := range defs {
		encoded, err := json.Marshal(def)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}
