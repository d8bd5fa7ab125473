// Package drafts holds the locally edited composition of one website: the
// ordered section ids, their enabled flags and config blobs, and the current
// website record. It performs no I/O.
package drafts

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// OrderKey addresses the whole section order rather than a single section.
const OrderKey = "@order"

const (
	headerID = "header"
	footerID = "footer"
)

var (
	ErrSectionNotFound  = errors.New("drafts: section not found")
	ErrDuplicateSection = errors.New("drafts: section already present")
	ErrBlankSection     = errors.New("drafts: section id is required")
	ErrNotPermutation   = errors.New("drafts: order is not a permutation of the current sections")
)

// Snapshot is an immutable deep copy of the section state.
type Snapshot struct {
	state sites.SectionState
}

// State returns a deep copy of the captured state.
func (s Snapshot) State() sites.SectionState {
	return s.state.Clone()
}

// Store is the single source of truth the builder renders from. Next to the
// draft it keeps the last state the server confirmed, which whole-state writes
// are built from. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	order     []string
	enabled   map[string]bool
	config    map[string]map[string]any
	confirmed sites.SectionState
	website   *sites.Website
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		order:     []string{},
		enabled:   map[string]bool{},
		config:    map[string]map[string]any{},
		confirmed: sites.SectionState{}.Clone(),
	}
}

// Order returns a copy of the section ids in order.
func (s *Store) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// RenderOrder returns the order the canvas displays: header first and footer
// last when present, every other section in stored order.
func (s *Store) RenderOrder() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PinnedOrder(s.order)
}

// PinnedOrder moves header to the front and footer to the back of order.
func PinnedOrder(order []string) []string {
	out := make([]string, 0, len(order))
	hasHeader, hasFooter := false, false
	for _, id := range order {
		switch id {
		case headerID:
			hasHeader = true
		case footerID:
			hasFooter = true
		default:
			out = append(out, id)
		}
	}
	if hasHeader {
		out = append([]string{headerID}, out...)
	}
	if hasFooter {
		out = append(out, footerID)
	}
	return out
}

// Len reports the number of sections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Has reports whether id is part of the site.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.order, id)
}

// IndexOf returns the position of id, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Index(s.order, id)
}

// Enabled reports the enabled flag of id. Unknown ids are disabled.
func (s *Store) Enabled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[id]
}

// EnabledCount reports how many sections are enabled.
func (s *Store) EnabledCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, id := range s.order {
		if s.enabled[id] {
			count++
		}
	}
	return count
}

// Config returns a deep copy of the config of id.
func (s *Store) Config(id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.config[id]
	return sites.CloneConfig(cfg), ok
}

// State returns a deep copy of the full section state.
func (s *Store) State() sites.SectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() sites.SectionState {
	return sites.SectionState{
		Order:   s.order,
		Enabled: s.enabled,
		Config:  s.config,
	}.Clone()
}

// Snapshot captures the section state for a later Restore or Revert.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{state: s.State()}
}

// Restore replaces the section state with the snapshot.
func (s *Store) Restore(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(snapshot.state.Clone())
}

// Replace swaps in a validated canonical state, discarding every local edit.
func (s *Store) Replace(state sites.SectionState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(state.Clone())
	s.confirmed = state.Clone()
	return nil
}

// Confirmed returns a deep copy of the last state the server acknowledged.
func (s *Store) Confirmed() sites.SectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed.Clone()
}

// ConfirmedWith returns the confirmed state with the draft value of key folded
// in. Unconfirmed edits of every other key are left out.
func (s *Store) ConfirmedWith(key string) sites.SectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.foldLocked(s.confirmed.Clone(), key)
}

// ConfirmKey records the draft value of key as acknowledged.
func (s *Store) ConfirmKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = s.foldLocked(s.confirmed.Clone(), key)
}

// MergeCanonical accepts a server state after one mutation succeeded. The
// draft takes the canonical values except for the keys in keep, whose
// mutations are still unsettled and keep their draft values. OrderKey in keep
// preserves the draft order.
func (s *Store) MergeCanonical(canonical sites.SectionState, keep []string) error {
	if err := canonical.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmed = canonical.Clone()
	merged := canonical.Clone()
	for _, key := range keep {
		if key == OrderKey {
			continue
		}
		merged = s.foldLocked(merged, key)
	}
	if slices.Contains(keep, OrderKey) {
		merged.Order = revertOrder(s.order, merged.Order)
	}
	s.setLocked(merged)
	return nil
}

// foldLocked copies the draft value of key into state. A section the draft
// holds is placed after its nearest draft predecessor already in state; a
// section the draft lacks is removed.
func (s *Store) foldLocked(state sites.SectionState, key string) sites.SectionState {
	if key == OrderKey {
		state.Order = revertOrder(s.order, state.Order)
		return state
	}
	draftIdx := slices.Index(s.order, key)
	stateIdx := slices.Index(state.Order, key)
	if draftIdx < 0 {
		if stateIdx >= 0 {
			state.Order = slices.Delete(state.Order, stateIdx, stateIdx+1)
		}
		delete(state.Enabled, key)
		delete(state.Config, key)
		return state
	}
	if stateIdx < 0 {
		at := 0
		for i := draftIdx - 1; i >= 0; i-- {
			if idx := slices.Index(state.Order, s.order[i]); idx >= 0 {
				at = idx + 1
				break
			}
		}
		state.Order = slices.Insert(state.Order, at, key)
	}
	if enabled, ok := s.enabled[key]; ok {
		state.Enabled[key] = enabled
	} else {
		delete(state.Enabled, key)
	}
	if cfg, ok := s.config[key]; ok {
		state.Config[key] = sites.CloneConfig(cfg)
	} else {
		delete(state.Config, key)
	}
	return state
}

func (s *Store) setLocked(state sites.SectionState) {
	s.order = state.Order
	s.enabled = state.Enabled
	s.config = state.Config
}

// SetOrder rewrites the full order. ids must be a permutation of the current set.
func (s *Store) SetOrder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !IsPermutation(s.order, ids) {
		return ErrNotPermutation
	}
	s.order = slices.Clone(ids)
	return nil
}

// IsPermutation reports whether candidate contains exactly the ids of current.
func IsPermutation(current, candidate []string) bool {
	if len(current) != len(candidate) {
		return false
	}
	counts := make(map[string]int, len(current))
	for _, id := range current {
		counts[id]++
	}
	for _, id := range candidate {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}
	return true
}

// SetEnabled flips the enabled flag of an existing section.
func (s *Store) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.order, id) {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	s.enabled[id] = enabled
	return nil
}

// SetConfig replaces the config blob of an existing section.
func (s *Store) SetConfig(id string, cfg map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.order, id) {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	s.config[id] = sites.CloneConfig(cfg)
	return nil
}

// Insert adds a section at index, clamped to the valid range.
func (s *Store) Insert(id string, index int, enabled bool, cfg map[string]any) error {
	if strings.TrimSpace(id) == "" {
		return ErrBlankSection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.order, id) {
		return fmt.Errorf("%w: %s", ErrDuplicateSection, id)
	}
	s.insertLocked(id, index, enabled, cfg)
	return nil
}

func (s *Store) insertLocked(id string, index int, enabled bool, cfg map[string]any) {
	index = max(0, min(index, len(s.order)))
	s.order = slices.Insert(s.order, index, id)
	s.enabled[id] = enabled
	if cfg == nil {
		cfg = map[string]any{}
	}
	s.config[id] = sites.CloneConfig(cfg)
}

// InsertionIndex returns where a newly added section goes: before a trailing
// footer, otherwise at the end.
func (s *Store) InsertionIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := len(s.order); n > 0 && s.order[n-1] == footerID {
		return n - 1
	}
	return len(s.order)
}

// Remove deletes a section and its state.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.order, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	s.removeLocked(idx)
	return nil
}

func (s *Store) removeLocked(idx int) {
	id := s.order[idx]
	s.order = slices.Delete(s.order, idx, idx+1)
	delete(s.enabled, id)
	delete(s.config, id)
}

// Revert undoes a mutation addressed by key using the snapshot taken before it.
// Only the addressed part of the state is restored, so concurrent mutations of
// other keys survive. When nothing else changed since the snapshot the result
// equals the snapshot exactly.
func (s *Store) Revert(snapshot Snapshot, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := snapshot.state
	if key == OrderKey {
		s.order = revertOrder(before.Order, s.order)
		return
	}

	beforeIdx := slices.Index(before.Order, key)
	currentIdx := slices.Index(s.order, key)
	switch {
	case beforeIdx < 0 && currentIdx >= 0:
		s.removeLocked(currentIdx)
	case beforeIdx >= 0 && currentIdx < 0:
		s.insertLocked(key, beforeIdx, before.Enabled[key], before.Config[key])
		if _, ok := before.Config[key]; !ok {
			delete(s.config, key)
		}
		if _, ok := before.Enabled[key]; !ok {
			delete(s.enabled, key)
		}
	case beforeIdx >= 0:
		if enabled, ok := before.Enabled[key]; ok {
			s.enabled[key] = enabled
		} else {
			delete(s.enabled, key)
		}
		if cfg, ok := before.Config[key]; ok {
			s.config[key] = sites.CloneConfig(cfg)
		} else {
			delete(s.config, key)
		}
	}
}

// revertOrder restores the snapshot order for ids still present and keeps ids
// added since the snapshot at the end, in their current relative order.
func revertOrder(before, current []string) []string {
	present := make(map[string]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}
	out := make([]string, 0, len(current))
	restored := make(map[string]struct{}, len(before))
	for _, id := range before {
		if _, ok := present[id]; ok {
			out = append(out, id)
			restored[id] = struct{}{}
		}
	}
	for _, id := range current {
		if _, ok := restored[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Website returns a copy of the current website, or nil when none exists.
func (s *Store) Website() *sites.Website {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.website.Clone()
}

// SetWebsite replaces the current website.
func (s *Store) SetWebsite(website *sites.Website) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.website = website.Clone()
}

// ReplaceAll swaps in both the website and its sections atomically.
func (s *Store) ReplaceAll(website *sites.Website, state sites.SectionState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.website = website.Clone()
	s.setLocked(state.Clone())
	s.confirmed = state.Clone()
	return nil
}

// Clear drops the website and every section.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.website = nil
	s.setLocked(sites.SectionState{}.Clone())
	s.confirmed = sites.SectionState{}.Clone()
}
