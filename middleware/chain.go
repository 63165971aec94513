package middleware

import "net/http"

// Chain composes stages so the first one listed runs first.
func Chain(stages ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		h := final
		for i := len(stages) - 1; i >= 0; i-- {
			if stages[i] != nil {
				h = stages[i](h)
			}
		}
		return h
	}
}
