package domain

import "strings"

// Status represents the lifecycle state of a podcast website.
type Status string

const (
	// StatusNone indicates no website has been generated yet.
	StatusNone Status = "none"
	// StatusDraft identifies a generated website that is not served publicly.
	StatusDraft Status = "draft"
	// StatusPublished identifies a website served to the public.
	StatusPublished Status = "published"
)

// Transition names the lifecycle operation moving a website between states.
type Transition string

const (
	TransitionGenerate  Transition = "generate"
	TransitionPublish   Transition = "publish"
	TransitionUnpublish Transition = "unpublish"
	TransitionReset     Transition = "reset"
)

// NormalizeStatus coerces arbitrary status strings into a known value. Blank and
// unknown values map to StatusNone.
func NormalizeStatus(input string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(input))) {
	case StatusDraft:
		return StatusDraft
	case StatusPublished:
		return StatusPublished
	default:
		return StatusNone
	}
}

// Exists reports whether the status describes a generated website.
func (s Status) Exists() bool {
	return s == StatusDraft || s == StatusPublished
}

// Allows reports whether the transition is valid from the receiver state.
//
//	none      -> generate -> draft
//	draft     -> publish  -> published
//	published -> publish  -> published (republish)
//	published -> unpublish -> draft
//	any       -> reset    -> draft
func (s Status) Allows(t Transition) bool {
	switch t {
	case TransitionGenerate, TransitionReset:
		return true
	case TransitionPublish:
		return s.Exists()
	case TransitionUnpublish:
		return s == StatusPublished
	default:
		return false
	}
}

// Next returns the state reached after applying the transition. Callers should
// check Allows first; invalid transitions return the receiver unchanged.
func (s Status) Next(t Transition) Status {
	if !s.Allows(t) {
		return s
	}
	switch t {
	case TransitionGenerate:
		if s.Exists() {
			return s
		}
		return StatusDraft
	case TransitionPublish:
		return StatusPublished
	case TransitionUnpublish, TransitionReset:
		return StatusDraft
	default:
		return s
	}
}
