package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/gatekeeper/jwt"
)

var (
	errMissing     = errors.New("missing")
	errRevoked     = errors.New("revoked")
	errUnavailable = errors.New("unavailable")
	errBadToken    = errors.New("bad token")
)

func authDeps(blacklisted bool, blErr error) AuthenticateDeps {
	return AuthenticateDeps{
		ParseAccess: func(token string) (*jwt.AccessClaims, error) {
			if token != "good" {
				return nil, jwt.ErrMalformed
			}
			return &jwt.AccessClaims{
				Role:             "user",
				RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1", ID: "t1"},
			}, nil
		},
		MapTokenError: func(error) error { return errBadToken },
		IsBlacklisted: func(context.Context, string) (bool, error) { return blacklisted, blErr },
		GetUserByID: func(_ context.Context, id string) (User, error) {
			if id != "u1" {
				return User{}, errNoUser
			}
			return User{ID: "u1", Role: "editor"}, nil
		},
		Errors: AuthenticateErrors{
			EngineNotReady:   errNotReady,
			MissingToken:     errMissing,
			TokenBlacklisted: errRevoked,
			UserNotFound:     errNoUser,
			StoreUnavailable: errUnavailable,
		},
	}
}

func TestRunAuthenticateLoadsLiveUser(t *testing.T) {
	observed := false
	deps := authDeps(false, nil)
	deps.Observe = func(time.Duration) { observed = true }

	res, err := RunAuthenticate(context.Background(), "good", deps)
	require.NoError(t, err)
	assert.Equal(t, "editor", res.User.Role, "role comes from the record")
	assert.Equal(t, "user", res.Claims.Role)
	assert.True(t, observed)
}

func TestRunAuthenticateRejections(t *testing.T) {
	ctx := context.Background()

	_, err := RunAuthenticate(ctx, "", authDeps(false, nil))
	assert.ErrorIs(t, err, errMissing)

	_, err = RunAuthenticate(ctx, "bad", authDeps(false, nil))
	assert.ErrorIs(t, err, errBadToken)

	_, err = RunAuthenticate(ctx, "good", authDeps(true, nil))
	assert.ErrorIs(t, err, errRevoked)

	_, err = RunAuthenticate(ctx, "good", authDeps(false, errStoreBlown))
	assert.ErrorIs(t, err, errUnavailable)
	assert.ErrorIs(t, err, errStoreBlown)

	deps := authDeps(false, nil)
	deps.GetUserByID = func(context.Context, string) (User, error) { return User{}, errNoUser }
	_, err = RunAuthenticate(ctx, "good", deps)
	assert.ErrorIs(t, err, errNoUser)

	_, err = RunAuthenticate(ctx, "good", AuthenticateDeps{Errors: AuthenticateErrors{EngineNotReady: errNotReady}})
	assert.ErrorIs(t, err, errNotReady)
}

func TestRunAuthenticateBlacklistCheckedBeforeLookup(t *testing.T) {
	looked := false
	deps := authDeps(true, nil)
	deps.GetUserByID = func(context.Context, string) (User, error) {
		looked = true
		return User{}, nil
	}
	_, err := RunAuthenticate(context.Background(), "good", deps)
	assert.ErrorIs(t, err, errRevoked)
	assert.False(t, looked)
}
