package reconcile

import (
	"context"
	"sync"
)

// gate lets shared mutations overlap and runs exclusive ones alone. A waiting
// exclusive mutation blocks new shared entries so it cannot starve.
type gate struct {
	mu        sync.Mutex
	shared    int
	exclusive bool
	waiting   int
	changed   chan struct{}
}

func newGate() *gate {
	return &gate{changed: make(chan struct{})}
}

// enter blocks until the caller may run. The returned leave must be called once.
func (g *gate) enter(ctx context.Context, exclusive bool) (func(), error) {
	g.mu.Lock()
	if exclusive {
		g.waiting++
	}
	for {
		if exclusive && !g.exclusive && g.shared == 0 {
			g.waiting--
			g.exclusive = true
			g.mu.Unlock()
			return g.leaveExclusive, nil
		}
		if !exclusive && !g.exclusive && g.waiting == 0 {
			g.shared++
			g.mu.Unlock()
			return g.leaveShared, nil
		}
		wait := g.changed
		g.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			if exclusive {
				g.mu.Lock()
				g.waiting--
				g.broadcastLocked()
				g.mu.Unlock()
			}
			return nil, ctx.Err()
		}
		g.mu.Lock()
	}
}

func (g *gate) leaveShared() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shared--
	g.broadcastLocked()
}

func (g *gate) leaveExclusive() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exclusive = false
	g.broadcastLocked()
}

func (g *gate) broadcastLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}
