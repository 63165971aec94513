package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.ParseAccess != nil
}

func (s Service) VerifyCredentials(ctx context.Context, identifier, secret string) (User, error) {
	return RunVerifyCredentials(ctx, identifier, secret, s.deps.Credentials)
}

func (s Service) Login(ctx context.Context, identifier, secret string) (LoginResult, error) {
	return RunLogin(ctx, identifier, secret, s.deps.Credentials, s.deps.Login)
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Authenticate(ctx context.Context, token string) (AuthenticateResult, error) {
	return RunAuthenticate(ctx, token, s.deps.Authenticate)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, accessToken, refreshToken string) (LogoutResult, error) {
	return RunLogout(ctx, accessToken, refreshToken, s.deps.Logout)
}
