package sites

import "sync"

// Latch admits one long-running website operation at a time. A session
// shares one between generation, publish and reset so they never overlap.
type Latch struct {
	mu     sync.Mutex
	holder string
}

// TryAcquire claims the latch for holder without waiting. When the latch is
// taken ok is false and busy names the operation holding it. release is safe
// to call more than once.
func (l *Latch) TryAcquire(holder string) (release func(), busy string, ok bool) {
	if holder == "" {
		holder = "operation"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder != "" {
		return nil, l.holder, false
	}
	l.holder = holder
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.holder = ""
		})
	}, "", true
}

// Holder names the operation holding the latch, or "" when it is free.
func (l *Latch) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}
