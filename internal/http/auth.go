package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tgdscott/DoneCast-sub013/internal/permissions"
)

var ErrUnauthenticated = errors.New("http: missing or unknown bearer token")

// Authenticator resolves the permissions of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (permissions.Checker, error)
}

// TokenAuthenticator grants each bearer token a fixed permission set.
type TokenAuthenticator struct {
	tokens map[string]permissions.Set
}

// NewTokenAuthenticator builds an authenticator from token -> permissions.
func NewTokenAuthenticator(tokens map[string][]string) *TokenAuthenticator {
	auth := &TokenAuthenticator{tokens: make(map[string]permissions.Set, len(tokens))}
	for token, perms := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		auth.tokens[token] = permissions.NewSet(perms...)
	}
	return auth
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (permissions.Checker, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrUnauthenticated
	}
	set, ok := a.tokens[strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))]
	if !ok {
		return nil, ErrUnauthenticated
	}
	return set, nil
}

// authMiddleware stores the caller's permissions on the request context.
// Without an authenticator every request passes through.
func authMiddleware(auth Authenticator, next http.Handler) http.Handler {
	if auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checker, err := auth.Authenticate(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(permissions.WithChecker(r.Context(), checker)))
	})
}
