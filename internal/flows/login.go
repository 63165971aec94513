package flows

import (
	"context"
	"errors"
	"time"
)

// CredentialErrors carries host-level sentinel errors used by credential checks.
type CredentialErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	UserNotFound       error
}

// CredentialDeps captures the credential verifier dependencies.
type CredentialDeps struct {
	UpgradeOnLogin bool

	Normalize           func(string) string
	GetUserByIdentifier func(context.Context, string) (User, error)
	VerifyPassword      func(secret, hash string) (bool, error)
	// DummyVerify burns the same work as VerifyPassword for identifiers with no record.
	DummyVerify        func(secret string)
	UpdateLastLogin    func(context.Context, string, time.Time) error
	NeedsRehash        func(hash string) bool
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error
	Now                func() time.Time

	MetricInc    func(int)
	RehashMetric int
	Warn         func(string, ...any)

	Errors CredentialErrors
}

// RunVerifyCredentials looks up identifier and compares secret against the stored hash.
// An unknown identifier and a wrong secret return the same error after comparable work.
func RunVerifyCredentials(ctx context.Context, identifier, secret string, deps CredentialDeps) (User, error) {
	if deps.Normalize == nil ||
		deps.GetUserByIdentifier == nil ||
		deps.VerifyPassword == nil {
		return User{}, deps.Errors.EngineNotReady
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.DummyVerify == nil {
		deps.DummyVerify = func(string) {}
	}

	normalized := deps.Normalize(identifier)
	if normalized == "" || secret == "" {
		deps.DummyVerify(secret)
		return User{}, deps.Errors.InvalidCredentials
	}

	user, err := deps.GetUserByIdentifier(ctx, normalized)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			deps.DummyVerify(secret)
			return User{}, deps.Errors.InvalidCredentials
		}
		return User{}, err
	}

	ok, err := deps.VerifyPassword(secret, user.PasswordHash)
	if err != nil || !ok {
		return User{}, deps.Errors.InvalidCredentials
	}

	now := deps.Now()
	if deps.UpdateLastLogin != nil {
		if err := deps.UpdateLastLogin(ctx, user.ID, now); err != nil {
			deps.Warn("gatekeeper: last-login update failed", "user_id", user.ID, "error", err)
		} else {
			user.LastLoginAt = now
		}
	}

	if deps.UpgradeOnLogin &&
		deps.NeedsRehash != nil &&
		deps.HashPassword != nil &&
		deps.UpdatePasswordHash != nil &&
		deps.NeedsRehash(user.PasswordHash) {
		if upgraded, err := deps.HashPassword(secret); err == nil {
			if err := deps.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
				deps.Warn("gatekeeper: password rehash failed", "user_id", user.ID, "error", err)
			} else {
				user.PasswordHash = upgraded
				deps.MetricInc(deps.RehashMetric)
			}
		}
	}

	return user, nil
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Tokens TokenPair
	User   User
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess int
	LoginFailure int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	IssueTokens func(context.Context, User) (TokenPair, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
}

// RunLogin verifies credentials and issues a token pair.
func RunLogin(ctx context.Context, identifier, secret string, creds CredentialDeps, deps LoginDeps) (LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.IssueTokens == nil {
		return LoginResult{}, creds.Errors.EngineNotReady
	}

	user, err := RunVerifyCredentials(ctx, identifier, secret, creds)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, nil)
		return LoginResult{}, err
	}

	tokens, err := deps.IssueTokens(ctx, user)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, err, nil)
		return LoginResult{}, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{"role": user.Role}
	})
	return LoginResult{Tokens: tokens, User: user}, nil
}
