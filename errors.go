package gatekeeper

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/gatekeeper/jwt"
)

var (
	// ErrInvalidCredentials is returned for an unknown identifier and a wrong secret alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken reports a request without a bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrTokenMalformed reports a token that cannot be parsed.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired reports a token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenSignatureInvalid reports a token whose signature does not verify.
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenBlacklisted reports a token revoked by logout.
	ErrTokenBlacklisted = errors.New("token revoked")
	// ErrRefreshInvalid reports a refresh token that is unknown, revoked, or otherwise unusable.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrUserNotFound reports a token subject that no longer resolves to a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden reports a role, permission, or ownership denial.
	ErrForbidden = errors.New("forbidden")
	// ErrResourceNotFound reports an ownership-gated resource that does not exist.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrRateLimited reports a request over its endpoint class ceiling.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrValidation reports malformed request input.
	ErrValidation = errors.New("validation failed")
	// ErrAccountExists reports a duplicate identifier at registration.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountRoleInvalid reports a role that is not configured.
	ErrAccountRoleInvalid = errors.New("invalid account role")
	// ErrProviderDuplicateIdentifier is returned by a UserProvider on a unique constraint violation.
	ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")
	// ErrStoreUnavailable reports a counter store outage on a path that cannot fail open.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind is the client-facing error category.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindRateLimit      ErrorKind = "rate_limit"
	KindNotFound       ErrorKind = "not_found"
	KindInternal       ErrorKind = "internal"
)

// Status maps the kind to its HTTP status code.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorClass struct {
	err  error
	kind ErrorKind
	code string
}

// Order matters: the first match wins.
var errorClasses = []errorClass{
	{ErrValidation, KindValidation, "validation_failed"},
	{ErrAccountExists, KindValidation, "account_exists"},
	{ErrAccountRoleInvalid, KindValidation, "invalid_role"},
	{ErrInvalidCredentials, KindAuthentication, "invalid_credentials"},
	{ErrMissingToken, KindAuthentication, "missing_token"},
	{ErrTokenExpired, KindAuthentication, "token_expired"},
	{ErrTokenSignatureInvalid, KindAuthentication, "token_signature_invalid"},
	{ErrTokenMalformed, KindAuthentication, "token_malformed"},
	{ErrTokenBlacklisted, KindAuthentication, "token_revoked"},
	{ErrRefreshInvalid, KindAuthentication, "refresh_invalid"},
	{ErrUserNotFound, KindAuthentication, "user_not_found"},
	{ErrForbidden, KindAuthorization, "forbidden"},
	{ErrRateLimited, KindRateLimit, "rate_limited"},
	{ErrResourceNotFound, KindNotFound, "not_found"},
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	kind, _ := classify(err)
	return kind
}

// CodeOf returns a stable machine-readable code for err.
func CodeOf(err error) string {
	_, code := classify(err)
	return code
}

// MessageOf returns a client-safe message for err. Wrapped detail and internal
// failures are never exposed.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "internal server error"
}

func classify(err error) (ErrorKind, string) {
	if err == nil {
		return "", ""
	}
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.kind, c.code
		}
	}
	return KindInternal, "internal"
}

// mapTokenError converts jwt package errors into the root token taxonomy.
func mapTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}

// ValidationError lists the fields that failed validation. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RateLimitError carries the retry window of a denied request. It matches ErrRateLimited.
type RateLimitError struct {
	Decision RateDecision
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded"
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
