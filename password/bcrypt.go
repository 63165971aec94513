package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordTooLong is returned when input exceeds the configured byte bound.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrPasswordTooShort is returned by Hash for input under MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password shorter than minimum length")
	// ErrMalformedHash wraps every stored-hash parse failure.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Bcrypt verifies hashes imported from systems that stored bcrypt digests.
// New hashes are always produced by [Argon2]; bcrypt records are upgraded on login.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt verifier. A zero cost selects bcrypt.DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash produces a bcrypt digest. Used to seed legacy fixtures and migrations.
func (b *Bcrypt) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password matches a bcrypt digest.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// IsBcryptHash reports whether encodedHash uses one of the bcrypt prefixes.
func IsBcryptHash(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}
