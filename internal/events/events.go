// Package events is the typed message bus shared by the builder components.
//
// Event names and payload types:
//
//	notice             Notice              user-visible notification (errors are mandatory on rollback)
//	sections.changed   SectionsChanged     draft store content changed (optimistic or confirmed)
//	generation.phase   GenerationPhase     generation controller entered a phase
//	website.changed    WebsiteChanged      website replaced after generate/publish/reset/reload
//	preview.updated    PreviewUpdated      a preview snapshot was fetched or assembled
//	episode.play       EpisodePlay         a subscriber asked the player to start an episode
//
// Subscribers receive events synchronously on the publishing goroutine and must
// call Unsubscribe on teardown.
package events

import (
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// Name identifies an event kind.
type Name string

const (
	NameNotice          Name = "notice"
	NameSectionsChanged Name = "sections.changed"
	NameGenerationPhase Name = "generation.phase"
	NameWebsiteChanged  Name = "website.changed"
	NamePreviewUpdated  Name = "preview.updated"
	NameEpisodePlay     Name = "episode.play"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Name    Name
	Payload any
}

// Severity grades notices.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a user-visible notification.
type Notice struct {
	Severity  Severity
	Operation string
	SectionID string
	Message   string
	Err       error
}

// SectionsChanged reports a store mutation. Confirmed is false for optimistic
// writes and rollbacks.
type SectionsChanged struct {
	Key        string
	Confirmed  bool
	RolledBack bool
}

// GenerationPhase reports generation controller transitions.
type GenerationPhase struct {
	Phase string
	Err   error
}

// WebsiteChanged carries the website after a lifecycle operation.
type WebsiteChanged struct {
	Operation string
	Website   *sites.Website
}

// PreviewUpdated carries a freshly fetched or assembled preview.
type PreviewUpdated struct {
	Subdomain   string
	Approximate bool
	Snapshot    *sites.PreviewSnapshot
	Err         error
}

// EpisodePlay asks the embedded player to start an episode.
type EpisodePlay struct {
	EpisodeID string
	StartAt   float64
}

// Handler receives events.
type Handler func(Event)

// Bus fans events out to subscribers keyed by name.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name]map[uint64]Handler
	nextID   uint64
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Name]map[uint64]Handler)}
}

// Subscription is returned by Subscribe.
type Subscription struct {
	bus  *Bus
	name Name
	id   uint64
	once sync.Once
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if handlers, ok := s.bus.handlers[s.name]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.bus.handlers, s.name)
			}
		}
	})
}

// Subscribe registers fn for events with the given name.
func (b *Bus) Subscribe(name Name, fn Handler) *Subscription {
	if b == nil || fn == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[Name]map[uint64]Handler)
	}
	id := b.nextID
	b.nextID++
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[uint64]Handler)
	}
	b.handlers[name][id] = fn
	return &Subscription{bus: b, name: name, id: id}
}

// Publish delivers the event to every current subscriber of its name. Handlers
// are invoked outside the bus lock so they may publish or unsubscribe.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	registered := b.handlers[evt.Name]
	handlers := make([]Handler, 0, len(registered))
	for _, fn := range registered {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// Subscribers reports how many handlers are attached to name.
func (b *Bus) Subscribers(name Name) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Notify publishes a notice. It satisfies the Notifier contract used by the
// reconciler and controllers.
func (b *Bus) Notify(n Notice) {
	b.Publish(Event{Name: NameNotice, Payload: n})
}

// Notifier is the user-visible error channel.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) {
	if f != nil {
		f(n)
	}
}

// Publisher is implemented by Bus; controllers depend on it for non-notice events.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(Event) {}

// Notify implements Notifier.
func (Discard) Notify(Notice) {}
