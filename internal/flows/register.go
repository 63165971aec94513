package flows

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// RegisterRequest is the flow-local registration input.
type RegisterRequest struct {
	Identifier string
	Secret     string
	Name       string
	Role       string
}

// CreateUserInput is passed to the user store.
type CreateUserInput struct {
	Identifier   string
	Name         string
	PasswordHash string
	Role         string
	Permissions  []string
}

type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	RegisterInvalid   int
}

type RegisterEvents struct {
	RegisterSuccess string
	RegisterFailure string
}

type RegisterErrors struct {
	EngineNotReady              error
	AccountExists               error
	AccountRoleInvalid          error
	ProviderDuplicateIdentifier error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	MinSecretLength int
	MinNameLength   int
	MaxNameLength   int
	MaxSecretBytes  int
	DefaultRole     string

	Normalize       func(string) string
	ValidIdentifier func(string) bool
	RolePermissions func(string) ([]string, bool)
	HashPassword    func(string) (string, error)
	CreateUser      func(context.Context, CreateUserInput) (User, error)
	// Invalid builds the validation error returned for field failures.
	Invalid func(fields map[string]string) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// ValidateRegistration returns the field failures of req. An empty map means valid.
func ValidateRegistration(req RegisterRequest, deps RegisterDeps) map[string]string {
	fields := make(map[string]string)

	identifier := deps.Normalize(req.Identifier)
	switch {
	case identifier == "":
		fields["identifier"] = "identifier is required"
	case deps.ValidIdentifier != nil && !deps.ValidIdentifier(identifier):
		fields["identifier"] = "identifier must be a valid email address"
	}

	switch {
	case utf8.RuneCountInString(req.Secret) < deps.MinSecretLength:
		fields["secret"] = "secret is too short"
	case deps.MaxSecretBytes > 0 && len(req.Secret) > deps.MaxSecretBytes:
		fields["secret"] = "secret is too long"
	}

	name := strings.TrimSpace(req.Name)
	n := utf8.RuneCountInString(name)
	switch {
	case n < deps.MinNameLength:
		fields["name"] = "name is too short"
	case deps.MaxNameLength > 0 && n > deps.MaxNameLength:
		fields["name"] = "name is too long"
	}

	return fields
}

// RunRegister validates req, hashes the secret, and creates the user.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (User, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Normalize == nil ||
		deps.HashPassword == nil ||
		deps.CreateUser == nil ||
		deps.RolePermissions == nil ||
		deps.Invalid == nil {
		return User{}, deps.Errors.EngineNotReady
	}

	if fields := ValidateRegistration(req, deps); len(fields) > 0 {
		err := deps.Invalid(fields)
		deps.MetricInc(deps.Metrics.RegisterInvalid)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, nil)
		return User{}, err
	}

	role := req.Role
	if role == "" {
		role = deps.DefaultRole
	}
	perms, ok := deps.RolePermissions(role)
	if !ok {
		deps.MetricInc(deps.Metrics.RegisterInvalid)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", deps.Errors.AccountRoleInvalid, nil)
		return User{}, deps.Errors.AccountRoleInvalid
	}

	hash, err := deps.HashPassword(req.Secret)
	if err != nil {
		return User{}, err
	}

	user, err := deps.CreateUser(ctx, CreateUserInput{
		Identifier:   deps.Normalize(req.Identifier),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		Permissions:  perms,
	})
	if err != nil {
		if errors.Is(err, deps.Errors.ProviderDuplicateIdentifier) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", deps.Errors.AccountExists, nil)
			return User{}, deps.Errors.AccountExists
		}
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, nil)
		return User{}, err
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{"role": user.Role}
	})
	return user, nil
}
