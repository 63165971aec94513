package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/middleware"
)

// Options tunes the router.
type Options struct {
	Logger *slog.Logger
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// RequestTimeout bounds every request. Zero disables the bound.
	RequestTimeout time.Duration
}

// Handler holds the engine behind every route.
type Handler struct {
	engine *gatekeeper.Engine
	logger *slog.Logger
}

// NewRouter returns the HTTP surface of engine.
func NewRouter(engine *gatekeeper.Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = engine.Logger()
	}
	h := &Handler{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, gatekeeper.ErrResourceNotFound)
	})

	r.Get("/healthz", h.health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(engine, gatekeeper.RateAuth))
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(engine, gatekeeper.RateGeneral))
			r.Post("/refresh", h.refresh)
			r.Post("/logout", h.logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.RateLimit(engine, gatekeeper.RateGeneral),
				middleware.RefreshExchange(engine, logger),
				middleware.Authenticate(engine),
			)
			r.Get("/me", h.me)
			r.Get("/authorize", h.authorize)
		})
	})

	return r
}
