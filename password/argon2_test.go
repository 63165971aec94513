package password

import (
	"errors"
	"strings"
	"testing"
)

// fastConfig sits at the parameter floor so the suite stays quick.
func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func mustArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestArgon2EncodesConfiguredCost(t *testing.T) {
	cfg := fastConfig()
	cfg.Time = 2
	a := mustArgon2(t, cfg)

	encoded, err := a.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if want := "$argon2id$v=19$m=8192,t=2,p=1$"; !strings.HasPrefix(encoded, want) {
		t.Fatalf("expected prefix %s, got %s", want, encoded)
	}

	other, err := a.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if other == encoded {
		t.Fatal("two hashes of one secret must use different salts")
	}

	for secret, want := range map[string]bool{
		"correct horse battery": true,
		"correct horse batterY": false,
	} {
		ok, err := a.Verify(secret, encoded)
		if err != nil || ok != want {
			t.Fatalf("Verify(%q) = %v, %v; want %v", secret, ok, err, want)
		}
	}
}

func TestArgon2LengthBounds(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 40
	a := mustArgon2(t, cfg)

	tests := []struct {
		name   string
		length int
		want   error
	}{
		{"empty", 0, ErrPasswordTooShort},
		{"one under minimum", MinPasswordBytes - 1, ErrPasswordTooShort},
		{"exactly minimum", MinPasswordBytes, nil},
		{"exactly maximum", 40, nil},
		{"one over maximum", 41, ErrPasswordTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Hash(strings.Repeat("x", tc.length))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Hash(len=%d) err = %v, want %v", tc.length, err, tc.want)
			}
		})
	}
}

func TestArgon2VerifyRejectsOversizedInputBeforeHashing(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 40
	a := mustArgon2(t, cfg)

	// The stored hash is never parsed when input is too long.
	if _, err := a.Verify(strings.Repeat("x", 41), "garbage"); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestArgon2DefaultMaximum(t *testing.T) {
	a := mustArgon2(t, fastConfig())

	if _, err := a.Hash(strings.Repeat("y", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected %d bytes to be accepted: %v", DefaultMaxPasswordBytes, err)
	}
	if _, err := a.Hash(strings.Repeat("y", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestArgon2MalformedStoredHash(t *testing.T) {
	a := mustArgon2(t, fastConfig())
	good, err := a.Hash("stored-secret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	parts := strings.Split(good, "$")
	parts[4] = "!!"
	badSalt := strings.Join(parts, "$")

	tests := map[string]string{
		"not phc":          "plain-text",
		"other algorithm":  strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"old version":      strings.Replace(good, "$v=19$", "$v=16$", 1),
		"memory too small": strings.Replace(good, "m=8192", "m=1024", 1),
		"extra parameter":  strings.Replace(good, "p=1", "p=1,x=2", 1),
		"bad salt":         badSalt,
	}
	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Verify("stored-secret", encoded); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash for %q, got %v", encoded, err)
			}
			if _, err := a.NeedsUpgrade(encoded); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("NeedsUpgrade: expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	current := fastConfig()
	current.Memory = 16 * 1024
	current.Time = 2
	a := mustArgon2(t, current)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"same parameters", func(*Config) {}, false},
		{"less memory", func(c *Config) { c.Memory = 8 * 1024 }, true},
		{"fewer passes", func(c *Config) { c.Time = 1 }, true},
		{"shorter key", func(c *Config) { c.KeyLength = 16 }, true},
		{"stronger than current", func(c *Config) { c.Memory = 32 * 1024; c.Time = 3 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := current
			tc.mutate(&cfg)
			encoded, err := mustArgon2(t, cfg).Hash("upgrade-secret")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			got, err := a.NeedsUpgrade(encoded)
			if err != nil || got != tc.want {
				t.Fatalf("NeedsUpgrade = %v, %v; want %v", got, err, tc.want)
			}
		})
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	tests := map[string]func(*Config){
		"memory":       func(c *Config) { c.Memory = 4 * 1024 },
		"time":         func(c *Config) { c.Time = 0 },
		"parallelism":  func(c *Config) { c.Parallelism = 0 },
		"salt":         func(c *Config) { c.SaltLength = 8 },
		"key":          func(c *Config) { c.KeyLength = 8 },
		"negative max": func(c *Config) { c.MaxPasswordBytes = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatalf("expected weak %s to be rejected", name)
			}
		})
	}
}
