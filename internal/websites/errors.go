package websites

import (
	"errors"
	"fmt"
)

var (
	ErrPodcastRequired      = errors.New("websites: podcast id required")
	ErrNotFound             = errors.New("websites: not found")
	ErrDuplicateWebsite     = errors.New("websites: podcast already has a website")
	ErrInvalidSections      = errors.New("websites: invalid section state")
	ErrUnknownSection       = errors.New("websites: unknown section definition")
	ErrNotPermutation       = errors.New("websites: order is not a permutation of the current sections")
	ErrInvalidConfig        = errors.New("websites: invalid section config")
	ErrInvalidTransition    = errors.New("websites: status transition not allowed")
	ErrEmptySite            = errors.New("websites: website has no enabled sections")
	ErrConfirmationMismatch = errors.New("websites: confirmation phrase does not match")
)

// NotFoundError reports a missing website, section or podcast.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("websites: %s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
