// Package reorder turns drag gestures and keyboard moves into permutations of
// the draft section order.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/reconcile"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// DefaultThreshold is the pointer travel, in pixels, before a drag starts.
const DefaultThreshold = 5.0

var (
	ErrNotPermutation  = drafts.ErrNotPermutation
	ErrGestureFinished = errors.New("reorder: gesture already finished")
)

// OrderPatcher persists a full section order.
type OrderPatcher interface {
	PatchOrder(ctx context.Context, podcastID string, order []string) (*sites.SectionState, error)
}

// Controller reorders the sections of one website.
type Controller struct {
	reconciler *reconcile.Reconciler
	api        OrderPatcher
	podcastID  string
	threshold  float64
}

// Option customises a Controller.
type Option func(*Controller)

// WithThreshold overrides the drag start distance. Non-positive values are ignored.
func WithThreshold(px float64) Option {
	return func(c *Controller) {
		if px > 0 {
			c.threshold = px
		}
	}
}

// New constructs a controller for podcastID.
func New(reconciler *reconcile.Reconciler, api OrderPatcher, podcastID string, opts ...Option) *Controller {
	c := &Controller{
		reconciler: reconciler,
		api:        api,
		podcastID:  podcastID,
		threshold:  DefaultThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Reorder replaces the order with ids, which must be a permutation of the
// current sections. The identity permutation is a no-op with no network call.
func (c *Controller) Reorder(ctx context.Context, ids []string) error {
	next := slices.Clone(ids)
	return c.apply(ctx, func([]string) ([]string, bool) { return next, true })
}

// MoveUp swaps the section at index with its predecessor. The first index and
// out of range indexes are no-ops.
func (c *Controller) MoveUp(ctx context.Context, index int) error {
	return c.apply(ctx, func(order []string) ([]string, bool) {
		if index <= 0 || index >= len(order) {
			return nil, false
		}
		order[index-1], order[index] = order[index], order[index-1]
		return order, true
	})
}

// MoveDown swaps the section at index with its successor. The last index and
// out of range indexes are no-ops.
func (c *Controller) MoveDown(ctx context.Context, index int) error {
	return c.apply(ctx, func(order []string) ([]string, bool) {
		if index < 0 || index >= len(order)-1 {
			return nil, false
		}
		order[index], order[index+1] = order[index+1], order[index]
		return order, true
	})
}

// Move relocates the section at from to position to.
func (c *Controller) Move(ctx context.Context, from, to int) error {
	return c.apply(ctx, func(order []string) ([]string, bool) {
		if from < 0 || from >= len(order) {
			return nil, false
		}
		return relocate(order, from, to)
	})
}

// MoveSection relocates section id to position to. An id no longer present is
// a no-op.
func (c *Controller) MoveSection(ctx context.Context, id string, to int) error {
	return c.apply(ctx, func(order []string) ([]string, bool) {
		from := slices.Index(order, id)
		if from < 0 {
			return nil, false
		}
		return relocate(order, from, to)
	})
}

func relocate(order []string, from, to int) ([]string, bool) {
	to = max(0, min(to, len(order)-1))
	if from == to {
		return nil, false
	}
	id := order[from]
	order = slices.Delete(order, from, from+1)
	return slices.Insert(order, to, id), true
}

// apply runs one order mutation. plan receives a copy of the order as it
// stands once earlier reorders have settled, so a queued move never builds on
// an optimistic order that was later rolled back. Persist sends exactly the
// order plan produced.
func (c *Controller) apply(ctx context.Context, plan func(order []string) ([]string, bool)) error {
	var next []string
	return c.reconciler.Apply(ctx, reconcile.Mutation{
		Key:   reconcile.OrderKey,
		Label: "reorder",
		Mutate: func(store *drafts.Store) error {
			current := store.Order()
			proposed, ok := plan(slices.Clone(current))
			if !ok || slices.Equal(current, proposed) {
				return reconcile.ErrNoChange
			}
			next = proposed
			return store.SetOrder(next)
		},
		Persist: func(ctx context.Context) (*sites.SectionState, error) {
			return c.api.PatchOrder(ctx, c.podcastID, next)
		},
	})
}

// Key is a keyboard reorder command.
type Key int

const (
	KeyUp Key = iota + 1
	KeyDown
)

// HandleKey maps keyboard reordering onto MoveUp and MoveDown.
func (c *Controller) HandleKey(ctx context.Context, index int, key Key) error {
	switch key {
	case KeyUp:
		return c.MoveUp(ctx, index)
	case KeyDown:
		return c.MoveDown(ctx, index)
	default:
		return nil
	}
}

// Point is a pointer position in pixels.
type Point struct {
	X float64
	Y float64
}

// Gesture tracks one pointer drag of a section.
type Gesture struct {
	c      *Controller
	id     string
	origin Point

	mu      sync.Mutex
	target  int
	started bool
	done    bool
}

// BeginDrag records a pointer press on section id.
func (c *Controller) BeginDrag(id string, at Point) (*Gesture, error) {
	index := c.reconciler.Store().IndexOf(id)
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", drafts.ErrSectionNotFound, id)
	}
	return &Gesture{c: c, id: id, origin: at, target: index}, nil
}

// Move reports pointer travel. The drag starts once the pointer has moved at
// least the threshold from where it was pressed. It reports whether the drag
// has started.
func (g *Gesture) Move(at Point) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return false
	}
	if !g.started && math.Hypot(at.X-g.origin.X, at.Y-g.origin.Y) >= g.c.threshold {
		g.started = true
	}
	return g.started
}

// Over sets the index the section would be dropped at.
func (g *Gesture) Over(index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done || !g.started {
		return
	}
	g.target = index
}

// Started reports whether the pointer crossed the threshold.
func (g *Gesture) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// Target returns the current drop index.
func (g *Gesture) Target() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target
}

// Drop completes the gesture with at most one reorder. A drag that never
// started or lands on its original position changes nothing.
func (g *Gesture) Drop(ctx context.Context) error {
	g.mu.Lock()
	if g.done {
		g.mu.Unlock()
		return ErrGestureFinished
	}
	g.done = true
	started, target := g.started, g.target
	g.mu.Unlock()

	if !started {
		return nil
	}
	return g.c.MoveSection(ctx, g.id, target)
}

// Cancel abandons the gesture.
func (g *Gesture) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done = true
}
