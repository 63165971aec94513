package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MrEthical07/gatekeeper"
)

// RateLimiter charges one request against an endpoint class.
type RateLimiter interface {
	Allow(ctx context.Context, class gatekeeper.RateClass, addr string) (gatekeeper.RateDecision, error)
}

// RateLimit rejects requests over the ceiling of class with 429 and a retry window.
// Requests allowed because the counter store is down carry no rate-limit headers.
func RateLimit(limiter RateLimiter, class gatekeeper.RateClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			r = withClientIP(r)
			decision, err := limiter.Allow(r.Context(), class, ClientIP(r))
			if !decision.FailedOpen && decision.Limit > 0 {
				h := w.Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
