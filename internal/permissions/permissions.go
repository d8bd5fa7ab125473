package permissions

import (
	"context"
	"errors"
	"strings"
)

// Grants understood by the sites API. Each may be narrowed to one podcast
// with Scope ("websites:update@pod-1"); "websites:*" and "*" are wildcards.
const (
	WebsitesRead    = "websites:read"
	WebsitesUpdate  = "websites:update"
	WebsitesPublish = "websites:publish"
	WebsitesReset   = "websites:reset"

	SectionsRead = "sections:read"
	PreviewsRead = "previews:read"
)

const (
	wildcard    = "*"
	scopeMarker = "@"
)

var ErrPermissionDenied = errors.New("permissions: denied")

// Error names the grant a caller was missing.
type Error struct {
	Permission string
}

func (e Error) Error() string {
	if e.Permission == "" {
		return "permission denied"
	}
	return "permission denied: " + e.Permission
}

func (e Error) Unwrap() error {
	return ErrPermissionDenied
}

// Scope narrows permission to one podcast. An existing scope is replaced.
func Scope(permission, podcastID string) string {
	normalized := normalize(permission)
	id := strings.TrimSpace(podcastID)
	if normalized == "" || id == "" {
		return normalized
	}
	base, _, _ := strings.Cut(normalized, scopeMarker)
	return base + scopeMarker + id
}

type Checker interface {
	Allowed(permission string) bool
}

// Set is the grant list attached to one API token.
type Set map[string]struct{}

func NewSet(perms ...string) Set {
	set := Set{}
	for _, perm := range perms {
		if normalized := normalize(perm); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// Allowed matches the exact grant, then "resource:*" (optionally scoped to
// the same podcast), then "*".
func (s Set) Allowed(permission string) bool {
	normalized := normalize(permission)
	if len(s) == 0 || normalized == "" {
		return false
	}
	candidates := []string{normalized, wildcard}
	base, podcastID, scoped := strings.Cut(normalized, scopeMarker)
	if resource, _, ok := strings.Cut(base, ":"); ok && resource != "" {
		candidates = append(candidates, resource+":"+wildcard)
		if scoped {
			candidates = append(candidates, resource+":"+wildcard+scopeMarker+podcastID)
		}
	}
	for _, candidate := range candidates {
		if _, ok := s[candidate]; ok {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithChecker stores the caller's grants on the context.
func WithChecker(ctx context.Context, checker Checker) context.Context {
	if ctx == nil || checker == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, checker)
}

// WithPermissions stores a static grant list on the context.
func WithPermissions(ctx context.Context, perms ...string) context.Context {
	if len(perms) == 0 {
		return ctx
	}
	return WithChecker(ctx, NewSet(perms...))
}

func CheckerFromContext(ctx context.Context) Checker {
	if ctx == nil {
		return nil
	}
	checker, _ := ctx.Value(contextKey{}).(Checker)
	return checker
}

// Allowed reports whether ctx carries permission. A context without a
// checker allows everything.
func Allowed(ctx context.Context, permission string) bool {
	return Require(ctx, permission) == nil
}

func Require(ctx context.Context, permission string) error {
	return RequireFor(ctx, permission, "")
}

// RequireFor accepts either the podcast-scoped or the global form of permission.
func RequireFor(ctx context.Context, permission, podcastID string) error {
	checker := CheckerFromContext(ctx)
	normalized := normalize(permission)
	if checker == nil || normalized == "" {
		return nil
	}
	scoped := Scope(normalized, podcastID)
	if checker.Allowed(scoped) || checker.Allowed(normalized) {
		return nil
	}
	return Error{Permission: scoped}
}

func normalize(permission string) string {
	return strings.ToLower(strings.TrimSpace(permission))
}
