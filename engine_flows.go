package gatekeeper

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/jwt"
)

func (e *Engine) initFlowDeps() {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emitAudit := func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, err, meta)
	}
	warn := func(msg string, args ...any) { e.logger.Warn(msg, args...) }
	getUserByID := func(ctx context.Context, id string) (flows.User, error) {
		u, err := e.userProvider.GetUserByID(ctx, id)
		if err != nil {
			return flows.User{}, err
		}
		return toFlowUser(u), nil
	}

	credentials := flows.CredentialDeps{
		UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		Normalize:      NormalizeIdentifier,
		GetUserByIdentifier: func(ctx context.Context, identifier string) (flows.User, error) {
			u, err := e.userProvider.GetUserByIdentifier(ctx, identifier)
			if err != nil {
				return flows.User{}, err
			}
			return toFlowUser(u), nil
		},
		VerifyPassword: e.hasher.Verify,
		DummyVerify: func(secret string) {
			_, _ = e.hasher.Verify(secret, e.dummyHash)
		},
		UpdateLastLogin:    e.userProvider.UpdateLastLogin,
		NeedsRehash:        e.hasher.NeedsRehash,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.userProvider.UpdatePasswordHash,
		Now:                e.now,
		MetricInc:          metricInc,
		RehashMetric:       int(MetricPasswordRehash),
		Warn:               warn,
		Errors: flows.CredentialErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			UserNotFound:       ErrUserNotFound,
		},
	}

	e.flows = flows.New(flows.Deps{
		Credentials: credentials,
		Login: flows.LoginDeps{
			IssueTokens: e.issueTokens,
			MetricInc:   metricInc,
			EmitAudit:   emitAudit,
			Metrics: flows.LoginMetrics{
				LoginSuccess: int(MetricLoginSuccess),
				LoginFailure: int(MetricLoginFailure),
			},
			Events: flows.LoginEvents{
				LoginSuccess: AuditLoginSuccess,
				LoginFailure: AuditLoginFailure,
			},
		},
		Register: flows.RegisterDeps{
			MinSecretLength: e.config.Account.MinSecretLength,
			MinNameLength:   e.config.Account.MinNameLength,
			MaxNameLength:   e.config.Account.MaxNameLength,
			MaxSecretBytes:  e.config.Password.MaxPasswordBytes,
			DefaultRole:     e.config.Account.DefaultRole,
			Normalize:       NormalizeIdentifier,
			ValidIdentifier: validIdentifier,
			RolePermissions: e.roleManager.Permissions,
			HashPassword:    e.hasher.Hash,
			CreateUser: func(ctx context.Context, in flows.CreateUserInput) (flows.User, error) {
				u, err := e.userProvider.CreateUser(ctx, CreateUserInput(in))
				if err != nil {
					return flows.User{}, err
				}
				return toFlowUser(u), nil
			},
			Invalid: func(fields map[string]string) error {
				return &ValidationError{Fields: fields}
			},
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Metrics: flows.RegisterMetrics{
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterDuplicate: int(MetricRegisterDuplicate),
				RegisterInvalid:   int(MetricRegisterInvalid),
			},
			Events: flows.RegisterEvents{
				RegisterSuccess: AuditRegisterSuccess,
				RegisterFailure: AuditRegisterFailure,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:              ErrEngineNotReady,
				AccountExists:               ErrAccountExists,
				AccountRoleInvalid:          ErrAccountRoleInvalid,
				ProviderDuplicateIdentifier: ErrProviderDuplicateIdentifier,
			},
		},
		Authenticate: flows.AuthenticateDeps{
			ParseAccess:   e.jwtManager.ParseAccess,
			MapTokenError: mapTokenError,
			IsBlacklisted: e.revocation.IsBlacklisted,
			GetUserByID:   getUserByID,
			Now:           e.now,
			Observe: func(d time.Duration) {
				e.metrics.Observe(MetricValidateLatency, d)
			},
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Warn:      warn,
			Metrics: flows.AuthenticateMetrics{
				AuthenticateSuccess: int(MetricAuthenticateSuccess),
				AuthenticateFailure: int(MetricAuthenticateFailure),
				BlacklistHit:        int(MetricBlacklistHit),
			},
			RejectEvent: AuditAuthenticateReject,
			Errors: flows.AuthenticateErrors{
				EngineNotReady:   ErrEngineNotReady,
				MissingToken:     ErrMissingToken,
				TokenBlacklisted: ErrTokenBlacklisted,
				UserNotFound:     ErrUserNotFound,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
		Refresh: flows.RefreshDeps{
			TrackTokens:  e.config.Refresh.TrackTokens,
			ParseRefresh: e.jwtManager.ParseRefresh,
			CheckRefresh: e.revocation.CheckRefresh,
			GetUserByID:  getUserByID,
			IssueAccess: func(u flows.User) (jwt.Token, error) {
				return e.jwtManager.CreateAccess(u.ID, u.Role)
			},
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Metrics: flows.RefreshMetrics{
				RefreshSuccess: int(MetricRefreshSuccess),
				RefreshFailure: int(MetricRefreshFailure),
			},
			Events: flows.RefreshEvents{
				RefreshSuccess: AuditRefreshSuccess,
				RefreshFailure: AuditRefreshFailure,
			},
			Errors: flows.RefreshErrors{
				EngineNotReady: ErrEngineNotReady,
				RefreshInvalid: ErrRefreshInvalid,
				UserNotFound:   ErrUserNotFound,
			},
		},
		Logout: flows.LogoutDeps{
			ParseAccess:   e.jwtManager.ParseAccess,
			ParseRefresh:  e.jwtManager.ParseRefresh,
			Blacklist:     e.revocation.Blacklist,
			RevokeRefresh: e.revocation.RevokeRefresh,
			MetricInc:     metricInc,
			LogoutMetric:  int(MetricLogout),
			EmitAudit:     emitAudit,
			LogoutEvent:   AuditLogout,
		},
	})
}

// issueTokens mints an access token and, when refresh is configured, a tracked refresh token.
func (e *Engine) issueTokens(ctx context.Context, u flows.User) (flows.TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(u.ID, u.Role)
	if err != nil {
		return flows.TokenPair{}, err
	}
	refresh, err := e.jwtManager.CreateRefresh(u.ID)
	if err != nil {
		return flows.TokenPair{}, err
	}
	if e.config.Refresh.TrackTokens {
		if err := e.revocation.TrackRefresh(ctx, refresh.ID, u.ID, e.jwtManager.RefreshTTL()); err != nil {
			return flows.TokenPair{}, errors.Join(ErrStoreUnavailable, err)
		}
	}
	return flows.TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		ExpiresAt:    access.ExpiresAt,
	}, nil
}

func toFlowUser(u UserRecord) flows.User {
	return flows.User(u)
}

func fromFlowUser(u flows.User) UserRecord {
	return UserRecord(u)
}
