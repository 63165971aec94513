package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/internal/logging"
	"github.com/MrEthical07/gatekeeper/middleware"
)

const maxBodyBytes = 64 << 10

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type authorizeResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &gatekeeper.ValidationError{Fields: map[string]string{"body": "request body must be a JSON object"}}
	}
	return nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req gatekeeper.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	user, err := h.engine.Register(r.Context(), req)
	if err != nil {
		if gatekeeper.KindOf(err) == gatekeeper.KindInternal {
			logging.FromContext(r.Context(), h.logger).Error("api: register failed", "error", err)
		}
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, user)
}

// login answers every failure with the same 401 body.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		middleware.WriteError(w, gatekeeper.ErrInvalidCredentials)
		return
	}

	res, err := h.engine.Login(r.Context(), req.Identifier, req.Secret)
	if err != nil {
		if !errors.Is(err, gatekeeper.ErrInvalidCredentials) {
			logging.FromContext(r.Context(), h.logger).Error("api: login failed", "error", err)
		}
		middleware.WriteError(w, gatekeeper.ErrInvalidCredentials)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(middleware.RefreshTokenHeader)
	if token == "" {
		var req refreshRequest
		if err := decodeBody(r, &req); err != nil {
			middleware.WriteError(w, gatekeeper.ErrRefreshInvalid)
			return
		}
		token = req.RefreshToken
	}

	access, exp, err := h.engine.Refresh(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, gatekeeper.ErrRefreshInvalid)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, refreshResponse{AccessToken: access, ExpiresAt: exp})
}

// logout always succeeds for the caller. Revocation failures are logged by the engine.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.Header.Get(middleware.RefreshTokenHeader)
	if refreshToken == "" && r.ContentLength != 0 {
		var req refreshRequest
		if decodeBody(r, &req) == nil {
			refreshToken = req.RefreshToken
		}
	}

	ctx := gatekeeper.WithClientIP(r.Context(), middleware.ClientIP(r))
	_ = h.engine.Logout(ctx, middleware.BearerToken(r), refreshToken)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, gatekeeper.ErrMissingToken)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, identity.Projection())
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, gatekeeper.ErrMissingToken)
		return
	}

	perm := r.URL.Query().Get("permission")
	if perm == "" {
		middleware.WriteError(w, &gatekeeper.ValidationError{Fields: map[string]string{"permission": "permission is required"}})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, authorizeResponse{Permission: perm, Allowed: identity.Has(perm)})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context(), h.logger).Warn("api: health check failed", "error", err)
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
