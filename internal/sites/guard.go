package sites

import "sync/atomic"

// Guard reports whether the owner of local state is still mounted. Continuations
// that run after a network round-trip must check it before writing state.
type Guard interface {
	Alive() bool
}

// AlwaysAlive is a Guard that never expires.
type AlwaysAlive struct{}

// Alive implements Guard.
func (AlwaysAlive) Alive() bool { return true }

// Lifecycle is a Guard flipped once by Close.
type Lifecycle struct {
	closed atomic.Bool
}

// Alive implements Guard.
func (l *Lifecycle) Alive() bool {
	return l != nil && !l.closed.Load()
}

// Close marks the owner as unmounted. It reports whether this call closed it.
func (l *Lifecycle) Close() bool {
	if l == nil {
		return false
	}
	return l.closed.CompareAndSwap(false, true)
}
