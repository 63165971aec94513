package gatekeeper

import (
	"context"
	"time"

	"github.com/MrEthical07/gatekeeper/permission"
)

// Built-in role names. Additional roles are configured through Builder.WithRoles.
const (
	RoleAdmin   = "admin"
	RoleEditor  = "editor"
	RoleManager = "manager"
	RoleUser    = "user"
)

// UserProvider is the persistent user store the Engine authenticates against.
//
// GetUserByIdentifier and GetUserByID return ErrUserNotFound when no record matches.
// CreateUser returns ErrProviderDuplicateIdentifier when the identifier is taken.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// UserRecord is the stored identity record.
type UserRecord struct {
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

// CreateUserInput is passed to UserProvider.CreateUser. Identifier is already normalized.
type CreateUserInput struct {
	Identifier   string
	Name         string
	PasswordHash string
	Role         string
	Permissions  []string
}

// RegisterRequest is the registration input.
type RegisterRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
	Name       string `json:"name"`
}

// UserProjection is the client-facing view of a user. It never carries the password hash.
type UserProjection struct {
	ID          string     `json:"id"`
	Identifier  string     `json:"identifier"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	Verified    bool       `json:"verified"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	User         UserProjection `json:"user"`
}

// Identity is the authenticated caller, built from the live user record.
type Identity struct {
	UserID      string
	Identifier  string
	Name        string
	Role        string
	Permissions []string
	Verified    bool

	// TokenID and ExpiresAt describe the access token that authenticated the request.
	TokenID   string
	ExpiresAt time.Time

	user     UserRecord
	mask     permission.Mask64
	registry *permission.Registry
}

// Has reports whether the identity holds capability perm. Identities built outside
// an Engine are checked against Permissions directly.
func (i *Identity) Has(perm string) bool {
	if i == nil {
		return false
	}
	if i.registry == nil {
		for _, p := range i.Permissions {
			if p == perm {
				return true
			}
		}
		return false
	}
	bit, ok := i.registry.Bit(perm)
	if !ok {
		return false
	}
	return i.mask.Has(bit)
}

// HasRole reports whether the identity's role is one of roles.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if r == i.Role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity has the admin role.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// Projection returns the client-facing view of the identity.
func (i *Identity) Projection() UserProjection {
	if i == nil {
		return UserProjection{}
	}
	p := projectUser(i.user)
	p.Permissions = append([]string(nil), i.Permissions...)
	return p
}

func projectUser(u UserRecord) UserProjection {
	p := UserProjection{
		ID:          u.ID,
		Identifier:  u.Identifier,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: append([]string{}, u.Permissions...),
		Verified:    u.Verified,
		CreatedAt:   u.CreatedAt,
	}
	if !u.LastLoginAt.IsZero() {
		at := u.LastLoginAt
		p.LastLoginAt = &at
	}
	return p
}

// RateClass names an endpoint class sharing one rate-limit window.
type RateClass string

const (
	RateGeneral      RateClass = "general"
	RateAuth         RateClass = "auth"
	RateUpload       RateClass = "upload"
	RateSubscription RateClass = "subscription"
)

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Class      RateClass
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	// FailedOpen is set when the counter store was unreachable and the request was allowed anyway.
	FailedOpen bool
}
