package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tgdscott/DoneCast-sub013/internal/permissions"
	"github.com/tgdscott/DoneCast-sub013/internal/validation"
	"github.com/tgdscott/DoneCast-sub013/internal/websites"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message,omitempty"`
	Issues  []validation.ValidationIssue `json:"issues,omitempty"`
}

// decodeJSON reads the request body into target. An empty body leaves target
// untouched when optional is set.
func decodeJSON(r *http.Request, target any, optional bool) error {
	if r == nil || r.Body == nil {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: body required", errBadRequest)
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	writeJSON(w, status, payload)
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "unknown_error"}
	}

	var notFound *websites.NotFoundError
	if errors.As(err, &notFound) || errors.Is(err, websites.ErrNotFound) {
		return http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: err.Error(),
		}
	}

	if errors.Is(err, permissions.ErrPermissionDenied) {
		return http.StatusForbidden, errorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		}
	}

	if errors.Is(err, websites.ErrDuplicateWebsite) {
		return http.StatusConflict, errorResponse{
			Error:   "conflict",
			Message: err.Error(),
		}
	}

	if errors.Is(err, websites.ErrInvalidConfig) ||
		errors.Is(err, websites.ErrInvalidSections) ||
		errors.Is(err, websites.ErrUnknownSection) ||
		errors.Is(err, websites.ErrNotPermutation) ||
		errors.Is(err, validation.ErrSchemaValidation) {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
			Issues:  validation.Issues(err),
		}
	}

	if errors.Is(err, websites.ErrInvalidTransition) ||
		errors.Is(err, websites.ErrEmptySite) ||
		errors.Is(err, websites.ErrConfirmationMismatch) {
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   "rejected",
			Message: err.Error(),
		}
	}

	if errors.Is(err, errBadRequest) || errors.Is(err, websites.ErrPodcastRequired) {
		return http.StatusBadRequest, errorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, errorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	}
}

func requirePermission(w http.ResponseWriter, r *http.Request, permission, podcastID string) bool {
	if err := permissions.RequireFor(r.Context(), permission, podcastID); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
