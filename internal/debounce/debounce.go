// Package debounce provides a trailing-edge debouncer keyed per field.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay matches the inactivity window used for numeric admin fields.
const DefaultDelay = 400 * time.Millisecond

// Debouncer delays fn until no new Trigger for the same key arrives within the
// configured delay. Only the most recent fn for a key runs.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
}

type entry struct {
	timer *time.Timer
	fn    func()
	seq   uint64
}

// New constructs a debouncer. Non-positive delays use DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*entry),
	}
}

// Delay reports the configured inactivity window.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn for key, replacing any pending call for the same key.
// Triggers after Stop are ignored.
func (d *Debouncer) Trigger(key string, fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	current, ok := d.pending[key]
	if !ok {
		current = &entry{}
		d.pending[key] = current
	} else if current.timer != nil {
		current.timer.Stop()
	}
	current.seq++
	current.fn = fn
	seq := current.seq
	current.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, seq)
	})
}

func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	current, ok := d.pending[key]
	if !ok || current.seq != seq || d.stopped {
		d.mu.Unlock()
		return
	}
	fn := current.fn
	delete(d.pending, key)
	d.mu.Unlock()

	fn()
}

// Flush runs the pending call for key immediately. It reports whether a call ran.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	current, ok := d.pending[key]
	if !ok || d.stopped {
		d.mu.Unlock()
		return false
	}
	current.timer.Stop()
	fn := current.fn
	delete(d.pending, key)
	d.mu.Unlock()

	fn()
	return true
}

// Cancel drops the pending call for key without running it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if current, ok := d.pending[key]; ok {
		current.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether key has a scheduled call.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels every pending call and rejects future triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, current := range d.pending {
		current.timer.Stop()
		delete(d.pending, key)
	}
}
