package gatekeeper

import (
	"context"
)

// VerifyCredentials checks identifier and secret against the user store.
// An unknown identifier and a wrong secret both return ErrInvalidCredentials.
// On success the last-login timestamp is updated.
func (e *Engine) VerifyCredentials(ctx context.Context, identifier, secret string) (UserRecord, error) {
	if e == nil || !e.flows.Initialized() {
		return UserRecord{}, ErrEngineNotReady
	}
	u, err := e.flows.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		return UserRecord{}, err
	}
	return fromFlowUser(u), nil
}

// Login verifies credentials and issues an access and refresh token.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Login(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	u := fromFlowUser(res.User)
	proj := projectUser(u)
	proj.Permissions = e.effectivePermissions(u)
	return &LoginResult{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresAt:    res.Tokens.ExpiresAt,
		User:         proj,
	}, nil
}

// Register validates req and creates a user with the default role.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (UserProjection, error) {
	if e == nil || !e.flows.Initialized() {
		return UserProjection{}, ErrEngineNotReady
	}
	u, err := e.flows.Register(ctx, flowsRegisterRequest(req))
	if err != nil {
		return UserProjection{}, err
	}
	return projectUser(fromFlowUser(u)), nil
}
