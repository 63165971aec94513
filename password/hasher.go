package password

import "errors"

// Hasher produces Argon2id hashes and verifies both Argon2id and legacy bcrypt records.
type Hasher struct {
	argon  *Argon2
	legacy *Bcrypt
}

// NewHasher builds a Hasher from Argon2id parameters.
func NewHasher(cfg Config) (*Hasher, error) {
	argon, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	legacy, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: argon, legacy: legacy}, nil
}

// Hash derives a new Argon2id hash.
func (h *Hasher) Hash(password string) (string, error) {
	if h == nil || h.argon == nil {
		return "", errors.New("hasher not initialized")
	}
	return h.argon.Hash(password)
}

// Verify dispatches on the stored hash format.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if h == nil || h.argon == nil {
		return false, errors.New("hasher not initialized")
	}
	if IsBcryptHash(encodedHash) {
		if len(password) > h.argon.config.MaxPasswordBytes {
			return false, ErrPasswordTooLong
		}
		return h.legacy.Verify(password, encodedHash)
	}
	return h.argon.Verify(password, encodedHash)
}

// NeedsRehash reports whether a successful login should replace encodedHash.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	if IsBcryptHash(encodedHash) {
		return true
	}
	upgrade, err := h.argon.NeedsUpgrade(encodedHash)
	return err == nil && upgrade
}
