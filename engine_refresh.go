package gatekeeper

import (
	"context"
	"time"
)

// Refresh mints a new access token from a refresh token. The role claim is taken from the
// live user record so role changes apply within one exchange.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if e == nil || !e.flows.Initialized() {
		return "", time.Time{}, ErrEngineNotReady
	}
	res, err := e.flows.Refresh(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	return res.AccessToken, res.ExpiresAt, nil
}
