// Package reconcile applies draft mutations optimistically, persists them, and
// rolls back the addressed part of the draft when persistence fails.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/drafts"
	"github.com/tgdscott/DoneCast-sub013/internal/events"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// OrderKey serializes mutations of the whole section order.
const OrderKey = drafts.OrderKey

var (
	ErrMissingKey    = errors.New("reconcile: mutation key is required")
	ErrMissingMutate = errors.New("reconcile: mutation function is required")
	// ErrNoChange is returned by Mutate when the draft already matches the
	// requested change. Apply then skips Persist and reports success.
	ErrNoChange = errors.New("reconcile: nothing to change")
)

// Mutation describes one optimistic change.
type Mutation struct {
	// Key is the section id the mutation addresses, or OrderKey.
	Key string
	// Label names the operation in logs and notices ("reorder", "toggle").
	Label string
	// Mutate applies the change to the draft. An error aborts before Persist.
	Mutate func(*drafts.Store) error
	// Persist sends the change. A non-nil state is canonical and is merged
	// into the draft on success, leaving keys with unsettled mutations alone.
	Persist func(context.Context) (*sites.SectionState, error)
	// Exclusive mutations rewrite more than their key (adding or deleting a
	// section sends the whole state). They wait for every running mutation to
	// settle and hold off new ones until they settle themselves.
	Exclusive bool
}

// Reconciler runs mutations against one draft store.
type Reconciler struct {
	store     *drafts.Store
	notifier  events.Notifier
	publisher events.Publisher
	guard     sites.Guard
	logger    interfaces.Logger

	gate *gate

	mu     sync.Mutex
	slots  map[string]*slot
	active map[string]int
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithNotifier sets the error channel used on rollback.
func WithNotifier(notifier events.Notifier) Option {
	return func(r *Reconciler) {
		if notifier != nil {
			r.notifier = notifier
		}
	}
}

// WithPublisher sets the bus that receives sections.changed events.
func WithPublisher(publisher events.Publisher) Option {
	return func(r *Reconciler) {
		if publisher != nil {
			r.publisher = publisher
		}
	}
}

// WithGuard sets the lifecycle guard checked before post-response writes.
func WithGuard(guard sites.Guard) Option {
	return func(r *Reconciler) {
		if guard != nil {
			r.guard = guard
		}
	}
}

// WithLogger sets the reconciler logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a reconciler bound to store.
func New(store *drafts.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		notifier:  events.Discard{},
		publisher: events.Discard{},
		guard:     sites.AlwaysAlive{},
		logger:    logging.NoOp(),
		gate:      newGate(),
		slots:     make(map[string]*slot),
		active:    make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Store exposes the draft the reconciler writes to.
func (r *Reconciler) Store() *drafts.Store {
	return r.store
}

// Apply runs m. Mutations sharing a key run one at a time in arrival order;
// mutations with different keys may overlap unless one is exclusive. On
// persist failure the addressed state is reverted, a notice is sent, and the
// error is returned. Nothing is retried.
func (r *Reconciler) Apply(ctx context.Context, m Mutation) error {
	key := strings.TrimSpace(m.Key)
	if key == "" {
		return ErrMissingKey
	}
	if m.Mutate == nil {
		return ErrMissingMutate
	}
	label := m.Label
	if label == "" {
		label = "update"
	}
	logger := logging.WithSiteContext(r.logger, "", key, label)

	release, err := r.acquire(ctx, key, m.Exclusive)
	if err != nil {
		return err
	}
	defer release()

	if !r.guard.Alive() {
		return context.Canceled
	}

	snapshot := r.store.Snapshot()
	r.mark(key)
	defer r.unmark(key)
	if err := m.Mutate(r.store); err != nil {
		r.store.Revert(snapshot, key)
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		logger.Debug("reconcile.mutate.rejected", "error", err)
		return err
	}
	r.publish(key, false, false)

	var canonical *sites.SectionState
	if m.Persist != nil {
		canonical, err = m.Persist(ctx)
	}
	if err != nil {
		if !r.guard.Alive() {
			logger.Debug("reconcile.persist.stale", "error", err)
			return err
		}
		r.store.Revert(snapshot, key)
		r.publish(key, false, true)
		logger.Warn("reconcile.rollback", "error", err, "kind", kindName(err))
		r.notifier.Notify(events.Notice{
			Severity:  events.SeverityError,
			Operation: label,
			SectionID: sectionID(key),
			Message:   sites.Describe(err),
			Err:       err,
		})
		return err
	}

	if !r.guard.Alive() {
		logger.Debug("reconcile.confirm.stale")
		return nil
	}
	if canonical != nil {
		if err := r.merge(key, *canonical); err != nil {
			logger.Warn("reconcile.canonical.rejected", "error", err)
		}
	} else {
		r.store.ConfirmKey(key)
	}
	r.publish(key, true, false)
	logger.Debug("reconcile.confirmed")
	return nil
}

// merge folds canonical into the draft. Keys other than key that have been
// mutated and not yet settled keep their draft values. Holding mu keeps a
// mutation from marking itself between the key list and the merge.
func (r *Reconciler) merge(key string, canonical sites.SectionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make([]string, 0, len(r.active))
	for other := range r.active {
		if other != key {
			keep = append(keep, other)
		}
	}
	return r.store.MergeCanonical(canonical, keep)
}

func (r *Reconciler) mark(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[key]++
}

func (r *Reconciler) unmark(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[key]--; r.active[key] <= 0 {
		delete(r.active, key)
	}
}

func (r *Reconciler) publish(key string, confirmed, rolledBack bool) {
	r.publisher.Publish(events.Event{
		Name: events.NameSectionsChanged,
		Payload: events.SectionsChanged{
			Key:        key,
			Confirmed:  confirmed,
			RolledBack: rolledBack,
		},
	})
}

// acquire waits for the gate and then the key's slot. The slot is counted
// while waiting so InFlight sees queued mutations. The returned release must
// be called once.
func (r *Reconciler) acquire(ctx context.Context, key string, exclusive bool) (func(), error) {
	r.mu.Lock()
	s, ok := r.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		r.slots[key] = s
	}
	s.refs++
	r.mu.Unlock()

	leave, err := r.gate.enter(ctx, exclusive)
	if err != nil {
		r.drop(key, s)
		return nil, err
	}

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		leave()
		r.drop(key, s)
		return nil, ctx.Err()
	}

	return func() {
		<-s.ch
		leave()
		r.drop(key, s)
	}, nil
}

func (r *Reconciler) drop(key string, s *slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(r.slots, key)
	}
}

// InFlight reports how many mutations currently hold or wait for key.
func (r *Reconciler) InFlight(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[key]; ok {
		return s.refs
	}
	return 0
}

func sectionID(key string) string {
	if key == OrderKey {
		return ""
	}
	return key
}

func kindName(err error) string {
	switch sites.Classify(err) {
	case sites.ErrForbidden:
		return "forbidden"
	case sites.ErrNotFound:
		return "not_found"
	case sites.ErrRejected:
		return "rejected"
	case sites.ErrValidation:
		return "validation"
	default:
		return "transient"
	}
}
