package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Credentials  CredentialDeps
	Login        LoginDeps
	Register     RegisterDeps
	Authenticate AuthenticateDeps
	Refresh      RefreshDeps
	Logout       LogoutDeps
}

// User is the flow-local user model. The root package converts to and from its public record.
type User struct {
	ID           string
	Identifier   string
	Name         string
	PasswordHash string
	Role         string
	Permissions  []string
	Verified     bool
	LastLoginAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditFunc emits one audit event. meta is evaluated only when auditing is enabled.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

func noopMetric(int) {}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopWarn(string, ...any) {}
