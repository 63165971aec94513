package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/jwt"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseAccess   func(string) (*jwt.AccessClaims, error)
	ParseRefresh  func(string) (*jwt.RefreshClaims, error)
	Blacklist     func(ctx context.Context, token string, expiresAt time.Time) error
	RevokeRefresh func(ctx context.Context, tokenID string) error

	MetricInc    func(int)
	LogoutMetric int
	EmitAudit    AuditFunc
	LogoutEvent  string
}

// LogoutResult reports which credentials were revoked.
type LogoutResult struct {
	UserID         string
	AccessRevoked  bool
	RefreshRevoked bool
}

// RunLogout blacklists the access token until its expiry and revokes the refresh token.
// Tokens that fail verification are skipped; they are not usable anyway. Store failures
// are returned so the caller can log them.
func RunLogout(ctx context.Context, accessToken, refreshToken string, deps LogoutDeps) (LogoutResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	var (
		res  LogoutResult
		errs []error
	)

	if accessToken != "" && deps.ParseAccess != nil && deps.Blacklist != nil {
		if claims, err := deps.ParseAccess(accessToken); err == nil && claims.ExpiresAt != nil {
			res.UserID = claims.Subject
			if err := deps.Blacklist(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
				errs = append(errs, err)
			} else {
				res.AccessRevoked = true
			}
		}
	}

	if refreshToken != "" && deps.ParseRefresh != nil && deps.RevokeRefresh != nil {
		if claims, err := deps.ParseRefresh(refreshToken); err == nil {
			// A refresh token belonging to someone else is left alone.
			if res.UserID == "" || res.UserID == claims.Subject {
				if res.UserID == "" {
					res.UserID = claims.Subject
				}
				if err := deps.RevokeRefresh(ctx, claims.ID); err != nil {
					errs = append(errs, err)
				} else {
					res.RefreshRevoked = true
				}
			}
		}
	}

	err := errors.Join(errs...)
	deps.MetricInc(deps.LogoutMetric)
	deps.EmitAudit(ctx, deps.LogoutEvent, err == nil, res.UserID, err, func() map[string]string {
		return map[string]string{
			"access_revoked":  boolString(res.AccessRevoked),
			"refresh_revoked": boolString(res.RefreshRevoked),
		}
	})
	return res, err
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
