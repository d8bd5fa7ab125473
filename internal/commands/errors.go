package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/tgdscott/DoneCast-sub013/internal/sites"
)

// Text codes attached to categorised command errors.
const (
	CodeInvalidMessage = "SITE_COMMAND_INVALID"
	CodeCancelled      = "SITE_COMMAND_CANCELLED"
	CodeTimedOut       = "SITE_COMMAND_TIMEOUT"
	CodeNotFound       = "SITE_NOT_FOUND"
	CodeForbidden      = "SITE_FORBIDDEN"
	CodeFieldErrors    = "SITE_FIELDS_INVALID"
	CodeRejected       = "SITE_REJECTED"
	CodeUnavailable    = "SITE_UNAVAILABLE"
)

func wrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid site command").
		WithTextCode(CodeInvalidMessage)
}

func wrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, goerrors.CategoryCommand, "site command timed out").
			WithTextCode(CodeTimedOut)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "site command cancelled").
		WithTextCode(CodeCancelled)
}

// wrapExecuteError tags a failure coming back from the sites API with the
// code of its taxonomy kind; the message is the user-facing description.
func wrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, sites.Describe(err)).
		WithTextCode(codeForKind(sites.Classify(err)))
}

func codeForKind(kind error) string {
	switch kind {
	case sites.ErrNotFound:
		return CodeNotFound
	case sites.ErrForbidden:
		return CodeForbidden
	case sites.ErrValidation:
		return CodeFieldErrors
	case sites.ErrRejected:
		return CodeRejected
	default:
		return CodeUnavailable
	}
}
