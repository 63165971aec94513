package gatekeeper

import (
	"context"

	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/permission"
)

// Authenticate verifies a bearer token, rejects blacklisted tokens, and loads the live
// user record. Role and permissions on the returned identity come from the record.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	id := e.identityFor(fromFlowUser(res.User))
	id.TokenID = res.Claims.ID
	if res.Claims.ExpiresAt != nil {
		id.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return id, nil
}

// LoadUser returns the live record for userID.
func (e *Engine) LoadUser(ctx context.Context, userID string) (UserRecord, error) {
	if e == nil || e.userProvider == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	return e.userProvider.GetUserByID(ctx, userID)
}

// Authorize reports whether the live record behind token holds perm.
func (e *Engine) Authorize(ctx context.Context, token, perm string) (bool, error) {
	id, err := e.Authenticate(ctx, token)
	if err != nil {
		return false, err
	}
	return id.Has(perm), nil
}

// identityFor resolves the effective mask: role defaults plus explicit grants.
// Unknown capability names on the record are ignored.
func (e *Engine) identityFor(u UserRecord) *Identity {
	mask := e.effectiveMask(u)
	return &Identity{
		UserID:      u.ID,
		Identifier:  u.Identifier,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: e.registry.Names(mask),
		Verified:    u.Verified,
		user:        u,
		mask:        mask,
		registry:    e.registry,
	}
}

func (e *Engine) effectiveMask(u UserRecord) permission.Mask64 {
	mask, _ := e.roleManager.GetMask(u.Role)
	for _, name := range u.Permissions {
		if bit, ok := e.registry.Bit(name); ok {
			mask.Set(bit)
		}
	}
	return mask
}

func (e *Engine) effectivePermissions(u UserRecord) []string {
	return e.registry.Names(e.effectiveMask(u))
}

func flowsRegisterRequest(req RegisterRequest) flows.RegisterRequest {
	return flows.RegisterRequest{
		Identifier: req.Identifier,
		Secret:     req.Secret,
		Name:       req.Name,
	}
}
