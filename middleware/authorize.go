package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/gatekeeper"
)

// RequireRole passes only identities whose role is in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := gatekeeper.IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, gatekeeper.ErrMissingToken)
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				WriteError(w, gatekeeper.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission passes only identities holding capability perm.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := gatekeeper.IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, gatekeeper.ErrMissingToken)
				return
			}
			if !identity.Has(perm) {
				WriteError(w, gatekeeper.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Owned is a resource with a single owning user.
type Owned interface {
	OwnerID() string
}

// ResourceLoader fetches the resource with id. A missing resource is reported as
// (nil, nil) or gatekeeper.ErrResourceNotFound.
type ResourceLoader func(ctx context.Context, id string) (Owned, error)

// ParamFunc extracts the resource id from a request.
type ParamFunc func(*http.Request) string

// URLParam reads a chi route parameter.
func URLParam(name string) ParamFunc {
	return func(r *http.Request) string {
		return chi.URLParam(r, name)
	}
}

type resourceContextKey struct{}

// ResourceFromContext returns the resource loaded by [RequireOwnership].
func ResourceFromContext(ctx context.Context) (Owned, bool) {
	res, ok := ctx.Value(resourceContextKey{}).(Owned)
	return res, ok && res != nil
}

// RequireOwnership loads the resource named by param and passes only its owner or an
// admin. The resource is attached to the request context for the handler.
func RequireOwnership(load ResourceLoader, param ParamFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := gatekeeper.IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, gatekeeper.ErrMissingToken)
				return
			}

			id := param(r)
			if id == "" {
				WriteError(w, gatekeeper.ErrResourceNotFound)
				return
			}

			res, err := load(r.Context(), id)
			switch {
			case errors.Is(err, gatekeeper.ErrResourceNotFound), err == nil && res == nil:
				WriteError(w, gatekeeper.ErrResourceNotFound)
				return
			case err != nil:
				WriteError(w, err)
				return
			}

			if res.OwnerID() != identity.UserID && !identity.IsAdmin() {
				WriteError(w, gatekeeper.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), resourceContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
