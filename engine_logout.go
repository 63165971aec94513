package gatekeeper

import (
	"context"

	"github.com/MrEthical07/gatekeeper/internal/revocation"
)

// Logout blacklists accessToken until its natural expiry and revokes refreshToken.
// Either may be empty. Invalid tokens are ignored; only counter store failures are returned.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	res, err := e.flows.Logout(ctx, accessToken, refreshToken)
	if err != nil {
		e.logger.Warn("gatekeeper: logout revocation incomplete",
			"user_id", res.UserID,
			"token", revocation.Fingerprint(accessToken),
			"error", err,
		)
		return err
	}
	e.logger.Debug("gatekeeper: logout",
		"user_id", res.UserID,
		"access_revoked", res.AccessRevoked,
		"refresh_revoked", res.RefreshRevoked,
	)
	return nil
}
