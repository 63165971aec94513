package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/gatekeeper"
)

// Authenticator resolves a bearer token to a live identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*gatekeeper.Identity, error)
}

// Authenticate requires an Authorization: Bearer token, resolves it through auth and
// attaches the identity to the request context.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				WriteError(w, gatekeeper.ErrEngineNotReady)
				return
			}

			r = withClientIP(r)
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, gatekeeper.ErrMissingToken)
				return
			}

			identity, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			ctx := gatekeeper.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity attached by [Authenticate].
func IdentityFromContext(ctx context.Context) (*gatekeeper.Identity, bool) {
	return gatekeeper.IdentityFromContext(ctx)
}

// BearerToken extracts the bearer token from r, if any.
func BearerToken(r *http.Request) string {
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// ClientIP returns the host part of r.RemoteAddr. Put chi's RealIP in front of the
// chain when running behind a trusted proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func withClientIP(r *http.Request) *http.Request {
	return r.WithContext(gatekeeper.WithClientIP(r.Context(), ClientIP(r)))
}
