package gatekeeper

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/gatekeeper/password"
)

// Config holds every tunable of an Engine. Start from DefaultConfig.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Account   AccountConfig
	Refresh   RefreshConfig
	Blacklist BlacklistConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and verification.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration input rules.
type AccountConfig struct {
	MinSecretLength int
	MinNameLength   int
	MaxNameLength   int
	DefaultRole     string
}

/*
====================================
REFRESH / BLACKLIST CONFIG
====================================
*/

// RefreshConfig controls the refresh exchange.
type RefreshConfig struct {
	// TrackTokens stores every issued refresh token id so logout can revoke it.
	// When false, refresh tokens are valid until natural expiry.
	TrackTokens bool
}

// BlacklistConfig controls revocation state on the counter store.
type BlacklistConfig struct {
	RedisPrefix string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RatePolicy is one endpoint class window.
type RatePolicy struct {
	Window time.Duration
	Limit  int
}

// RateLimitConfig holds the window of every endpoint class.
type RateLimitConfig struct {
	Enabled      bool
	RedisPrefix  string
	FailOpen     bool
	General      RatePolicy
	Auth         RatePolicy
	Upload       RatePolicy
	Subscription RatePolicy
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Exclude names event types (AuditLoginSuccess etc.) that are not recorded.
	Exclude []string
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. JWT keys must still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "gatekeeper",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		Account: AccountConfig{
			MinSecretLength: 8,
			MinNameLength:   2,
			MaxNameLength:   100,
			DefaultRole:     RoleUser,
		},
		Refresh: RefreshConfig{
			TrackTokens: true,
		},
		Blacklist: BlacklistConfig{
			RedisPrefix: "gk",
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			RedisPrefix:  "rl",
			FailOpen:     true,
			General:      RatePolicy{Window: 15 * time.Minute, Limit: 100},
			Auth:         RatePolicy{Window: time.Hour, Limit: 5},
			Upload:       RatePolicy{Window: time.Hour, Limit: 10},
			Subscription: RatePolicy{Window: 24 * time.Hour, Limit: 3},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Audit.Exclude = append([]string(nil), cfg.Audit.Exclude...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT PrivateKey is required")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 secret must be at least 32 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Account
	if c.Account.MinSecretLength < password.MinPasswordBytes {
		return fmt.Errorf("Account MinSecretLength must be >= %d", password.MinPasswordBytes)
	}
	if c.Account.MinNameLength < 1 {
		return errors.New("Account MinNameLength must be >= 1")
	}
	if c.Account.MaxNameLength < c.Account.MinNameLength {
		return errors.New("Account MaxNameLength must be >= MinNameLength")
	}
	if c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole must be set")
	}

	// Blacklist
	if c.Blacklist.RedisPrefix == "" {
		return errors.New("Blacklist RedisPrefix must be set")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.RedisPrefix == "" {
			return errors.New("RateLimit RedisPrefix must be set")
		}
		if c.RateLimit.RedisPrefix == c.Blacklist.RedisPrefix {
			return errors.New("RateLimit RedisPrefix must differ from Blacklist RedisPrefix")
		}
		policies := []struct {
			name   string
			policy RatePolicy
		}{
			{"General", c.RateLimit.General},
			{"Auth", c.RateLimit.Auth},
			{"Upload", c.RateLimit.Upload},
			{"Subscription", c.RateLimit.Subscription},
		}
		for _, p := range policies {
			if p.policy.Window < time.Second {
				return errors.New("RateLimit " + p.name + " Window must be >= 1s")
			}
			if p.policy.Limit <= 0 {
				return errors.New("RateLimit " + p.name + " Limit must be > 0")
			}
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
