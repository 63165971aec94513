package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/jwt"
)

type AuthenticateMetrics struct {
	AuthenticateSuccess int
	AuthenticateFailure int
	BlacklistHit        int
}

type AuthenticateErrors struct {
	EngineNotReady   error
	MissingToken     error
	TokenBlacklisted error
	UserNotFound     error
	StoreUnavailable error
}

// AuthenticateDeps captures bearer-token authentication dependencies.
type AuthenticateDeps struct {
	ParseAccess   func(string) (*jwt.AccessClaims, error)
	MapTokenError func(error) error
	IsBlacklisted func(context.Context, string) (bool, error)
	GetUserByID   func(context.Context, string) (User, error)

	Now       func() time.Time
	Observe   func(time.Duration)
	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics     AuthenticateMetrics
	RejectEvent string
	Errors      AuthenticateErrors
}

// AuthenticateResult carries the live user behind a verified token.
type AuthenticateResult struct {
	User   User
	Claims *jwt.AccessClaims
}

// RunAuthenticate verifies token, rejects blacklisted tokens, and loads the live user record.
// Role and permissions always come from the user record, never from the token.
func RunAuthenticate(ctx context.Context, token string, deps AuthenticateDeps) (AuthenticateResult, error) {
	if deps.ParseAccess == nil || deps.IsBlacklisted == nil || deps.GetUserByID == nil {
		return AuthenticateResult{}, deps.Errors.EngineNotReady
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.MapTokenError == nil {
		deps.MapTokenError = func(err error) error { return err }
	}

	start := deps.Now()
	res, err := authenticate(ctx, token, deps)
	if deps.Observe != nil {
		deps.Observe(deps.Now().Sub(start))
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return AuthenticateResult{}, err
	}
	deps.MetricInc(deps.Metrics.AuthenticateSuccess)
	return res, nil
}

func authenticate(ctx context.Context, token string, deps AuthenticateDeps) (AuthenticateResult, error) {
	if token == "" {
		return AuthenticateResult{}, deps.Errors.MissingToken
	}

	claims, err := deps.ParseAccess(token)
	if err != nil {
		return AuthenticateResult{}, deps.MapTokenError(err)
	}

	revoked, err := deps.IsBlacklisted(ctx, token)
	if err != nil {
		deps.Warn("gatekeeper: blacklist check failed", "error", err)
		return AuthenticateResult{}, errors.Join(deps.Errors.StoreUnavailable, err)
	}
	if revoked {
		deps.MetricInc(deps.Metrics.BlacklistHit)
		deps.EmitAudit(ctx, deps.RejectEvent, false, claims.Subject, deps.Errors.TokenBlacklisted, nil)
		return AuthenticateResult{}, deps.Errors.TokenBlacklisted
	}

	user, err := deps.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			deps.EmitAudit(ctx, deps.RejectEvent, false, claims.Subject, deps.Errors.UserNotFound, nil)
			return AuthenticateResult{}, deps.Errors.UserNotFound
		}
		return AuthenticateResult{}, err
	}

	return AuthenticateResult{User: user, Claims: claims}, nil
}
