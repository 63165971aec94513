package gatekeeper

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrEthical07/gatekeeper/jwt"
)

func TestErrorKindStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   ErrorKind
		status int
	}{
		{ErrValidation, KindValidation, http.StatusBadRequest},
		{&ValidationError{Fields: map[string]string{"name": "required"}}, KindValidation, http.StatusBadRequest},
		{ErrAccountExists, KindValidation, http.StatusBadRequest},
		{ErrInvalidCredentials, KindAuthentication, http.StatusUnauthorized},
		{ErrMissingToken, KindAuthentication, http.StatusUnauthorized},
		{ErrTokenExpired, KindAuthentication, http.StatusUnauthorized},
		{ErrTokenSignatureInvalid, KindAuthentication, http.StatusUnauthorized},
		{ErrTokenMalformed, KindAuthentication, http.StatusUnauthorized},
		{ErrTokenBlacklisted, KindAuthentication, http.StatusUnauthorized},
		{ErrUserNotFound, KindAuthentication, http.StatusUnauthorized},
		{ErrForbidden, KindAuthorization, http.StatusForbidden},
		{&RateLimitError{}, KindRateLimit, http.StatusTooManyRequests},
		{ErrResourceNotFound, KindNotFound, http.StatusNotFound},
		{ErrStoreUnavailable, KindInternal, http.StatusInternalServerError},
		{errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Errorf("%v: expected kind %s, got %s", tc.err, tc.kind, got)
		}
		if got := KindOf(tc.err).Status(); got != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, got)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", errors.Join(ErrRefreshInvalid, errors.New("redis down")))
	if KindOf(wrapped) != KindAuthentication || CodeOf(wrapped) != "refresh_invalid" {
		t.Fatalf("unexpected classification %s/%s", KindOf(wrapped), CodeOf(wrapped))
	}
	if KindOf(nil) != "" || CodeOf(nil) != "" {
		t.Fatal("nil must classify as empty")
	}
}

func TestMapTokenError(t *testing.T) {
	cases := map[error]error{
		jwt.ErrExpired:          ErrTokenExpired,
		jwt.ErrSignatureInvalid: ErrTokenSignatureInvalid,
		jwt.ErrMalformed:        ErrTokenMalformed,
		errors.New("other"):     ErrTokenMalformed,
	}
	for in, want := range cases {
		if got := mapTokenError(in); got != want {
			t.Errorf("%v: expected %v, got %v", in, want, got)
		}
	}
	if mapTokenError(nil) != nil {
		t.Fatal("nil must map to nil")
	}
}

func TestMessageOfHidesDetail(t *testing.T) {
	joined := errors.Join(ErrRefreshInvalid, errors.New("redis: connection refused"))
	if got := MessageOf(joined); got != "invalid refresh token" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(errors.New("pq: secret detail")); got != "internal server error" {
		t.Fatalf("unexpected message %q", got)
	}
	if MessageOf(&ValidationError{}) != "validation failed" {
		t.Fatal("validation message mismatch")
	}
}
