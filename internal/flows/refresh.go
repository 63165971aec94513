package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/jwt"
)

type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
}

type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

type RefreshErrors struct {
	EngineNotReady error
	RefreshInvalid error
	UserNotFound   error
}

// RefreshDeps captures refresh exchange dependencies.
type RefreshDeps struct {
	TrackTokens bool

	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	CheckRefresh func(ctx context.Context, tokenID, subject string) error
	GetUserByID  func(context.Context, string) (User, error)
	IssueAccess  func(User) (jwt.Token, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RefreshResult is a new access token minted from a refresh token.
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        User
}

// RunRefresh exchanges a refresh token for a new access token built from the live user record.
// The refresh token itself is not rotated.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (RefreshResult, error) {
	if deps.ParseRefresh == nil || deps.GetUserByID == nil || deps.IssueAccess == nil {
		return RefreshResult{}, deps.Errors.EngineNotReady
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	res, userID, err := refresh(ctx, refreshToken, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, userID, err, nil)
		return RefreshResult{}, err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, userID, nil, nil)
	return res, nil
}

func refresh(ctx context.Context, refreshToken string, deps RefreshDeps) (RefreshResult, string, error) {
	if refreshToken == "" {
		return RefreshResult{}, "", deps.Errors.RefreshInvalid
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{}, "", errors.Join(deps.Errors.RefreshInvalid, err)
	}

	if deps.TrackTokens && deps.CheckRefresh != nil {
		if err := deps.CheckRefresh(ctx, claims.ID, claims.Subject); err != nil {
			return RefreshResult{}, claims.Subject, errors.Join(deps.Errors.RefreshInvalid, err)
		}
	}

	user, err := deps.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			return RefreshResult{}, claims.Subject, deps.Errors.UserNotFound
		}
		return RefreshResult{}, claims.Subject, err
	}

	access, err := deps.IssueAccess(user)
	if err != nil {
		return RefreshResult{}, user.ID, err
	}

	return RefreshResult{
		AccessToken: access.Value,
		ExpiresAt:   access.ExpiresAt,
		User:        user,
	}, user.ID, nil
}
