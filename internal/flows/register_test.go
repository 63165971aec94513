package flows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errExists  = errors.New("exists")
	errBadRole = errors.New("bad role")
	errDupe    = errors.New("dupe")
	errInvalid = errors.New("invalid")
)

func registerDeps(created *[]CreateUserInput) RegisterDeps {
	return RegisterDeps{
		MinSecretLength: 8,
		MinNameLength:   2,
		MaxNameLength:   100,
		MaxSecretBytes:  64,
		DefaultRole:     "user",
		Normalize:       func(v string) string { return strings.ToLower(strings.TrimSpace(v)) },
		ValidIdentifier: func(v string) bool { return strings.Contains(v, "@") },
		RolePermissions: func(role string) ([]string, bool) {
			if role == "user" {
				return []string{"content.read"}, true
			}
			return nil, false
		},
		HashPassword: func(s string) (string, error) { return "h:" + s, nil },
		CreateUser: func(_ context.Context, in CreateUserInput) (User, error) {
			for _, c := range *created {
				if c.Identifier == in.Identifier {
					return User{}, errDupe
				}
			}
			*created = append(*created, in)
			return User{ID: "id-" + in.Identifier, Identifier: in.Identifier, Role: in.Role, Permissions: in.Permissions}, nil
		},
		Invalid: func(map[string]string) error { return errInvalid },
		Errors: RegisterErrors{
			EngineNotReady:              errNotReady,
			AccountExists:               errExists,
			AccountRoleInvalid:          errBadRole,
			ProviderDuplicateIdentifier: errDupe,
		},
	}
}

func TestValidateRegistrationFields(t *testing.T) {
	deps := registerDeps(&[]CreateUserInput{})

	cases := []struct {
		name   string
		req    RegisterRequest
		fields []string
	}{
		{"valid", RegisterRequest{Identifier: "a@b.c", Secret: "longenough", Name: "Al"}, nil},
		{"missing everything", RegisterRequest{}, []string{"identifier", "secret", "name"}},
		{"bad identifier", RegisterRequest{Identifier: "nope", Secret: "longenough", Name: "Al"}, []string{"identifier"}},
		{"secret too long", RegisterRequest{Identifier: "a@b.c", Secret: strings.Repeat("x", 65), Name: "Al"}, []string{"secret"}},
		{"name whitespace only", RegisterRequest{Identifier: "a@b.c", Secret: "longenough", Name: "   "}, []string{"name"}},
		{"name too long", RegisterRequest{Identifier: "a@b.c", Secret: "longenough", Name: strings.Repeat("é", 101)}, []string{"name"}},
		{"multibyte name counts runes", RegisterRequest{Identifier: "a@b.c", Secret: "longenough", Name: "Zoë"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := ValidateRegistration(tc.req, deps)
			assert.Len(t, fields, len(tc.fields))
			for _, f := range tc.fields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestRunRegister(t *testing.T) {
	var created []CreateUserInput
	deps := registerDeps(&created)
	ctx := context.Background()

	u, err := RunRegister(ctx, RegisterRequest{Identifier: " A@B.C ", Secret: "longenough", Name: " Al "}, deps)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.Identifier)
	assert.Equal(t, "user", u.Role)
	require.Len(t, created, 1)
	assert.Equal(t, "Al", created[0].Name)
	assert.Equal(t, "h:longenough", created[0].PasswordHash)
	assert.Equal(t, []string{"content.read"}, created[0].Permissions)

	_, err = RunRegister(ctx, RegisterRequest{Identifier: "a@b.c", Secret: "longenough", Name: "Al"}, deps)
	assert.ErrorIs(t, err, errExists)

	_, err = RunRegister(ctx, RegisterRequest{Identifier: "x@b.c", Secret: "short", Name: "Al"}, deps)
	assert.ErrorIs(t, err, errInvalid)

	_, err = RunRegister(ctx, RegisterRequest{Identifier: "y@b.c", Secret: "longenough", Name: "Al", Role: "wizard"}, deps)
	assert.ErrorIs(t, err, errBadRole)
	assert.Len(t, created, 1)
}
