package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/gatekeeper"
)

const (
	// RefreshTokenHeader carries a refresh token on any request.
	RefreshTokenHeader = "Refresh-Token"
	// NewAccessTokenHeader carries the access token minted from RefreshTokenHeader.
	NewAccessTokenHeader = "New-Access-Token"
	// NewAccessTokenExpiresHeader is the RFC 3339 expiry of NewAccessTokenHeader.
	NewAccessTokenExpiresHeader = "New-Access-Token-Expires"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, error)
}

// RefreshExchange mints a new access token when the request carries a Refresh-Token
// header. Failures are logged and the request continues unmodified.
func RefreshExchange(refresher Refresher, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			refreshToken := r.Header.Get(RefreshTokenHeader)
			if refresher == nil || refreshToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			r = withClientIP(r)
			access, exp, err := refresher.Refresh(r.Context(), refreshToken)
			if err != nil {
				logger.Warn("middleware: refresh exchange skipped",
					"code", gatekeeper.CodeOf(err),
					"client_ip", ClientIP(r),
				)
			} else {
				w.Header().Set(NewAccessTokenHeader, access)
				w.Header().Set(NewAccessTokenExpiresHeader, exp.UTC().Format(time.RFC3339))
			}

			next.ServeHTTP(w, r)
		})
	}
}
