package gatekeeper

import (
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigNeedsKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing key to fail validation")
	}
	cfg = validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestDefaultRatePolicies(t *testing.T) {
	rl := DefaultConfig().RateLimit
	cases := []struct {
		name   string
		policy RatePolicy
		want   RatePolicy
	}{
		{"general", rl.General, RatePolicy{Window: 15 * time.Minute, Limit: 100}},
		{"auth", rl.Auth, RatePolicy{Window: time.Hour, Limit: 5}},
		{"upload", rl.Upload, RatePolicy{Window: time.Hour, Limit: 10}},
		{"subscription", rl.Subscription, RatePolicy{Window: 24 * time.Hour, Limit: 3}},
	}
	for _, tc := range cases {
		if tc.policy != tc.want {
			t.Errorf("%s: expected %+v, got %+v", tc.name, tc.want, tc.policy)
		}
	}
	if !rl.FailOpen {
		t.Fatal("rate limiting must fail open by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "jwt leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:      "jwt leeway invalid",
			mutate:    func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "jwt signing invalid",
			mutate:    func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantValid: false,
		},
		{
			name:      "hs256 short secret",
			mutate:    func(c *Config) { c.JWT.PrivateKey = []byte("short") },
			wantValid: false,
		},
		{
			name:      "ed25519 without public key",
			mutate:    func(c *Config) { c.JWT.SigningMethod = "ed25519" },
			wantValid: false,
		},
		{
			name:      "refresh shorter than access",
			mutate:    func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL },
			wantValid: false,
		},
		{
			name:      "weak argon memory",
			mutate:    func(c *Config) { c.Password.Memory = 1024 },
			wantValid: false,
		},
		{
			name:      "secret minimum below 8",
			mutate:    func(c *Config) { c.Account.MinSecretLength = 6 },
			wantValid: false,
		},
		{
			name:      "name bounds inverted",
			mutate:    func(c *Config) { c.Account.MaxNameLength = 1 },
			wantValid: false,
		},
		{
			name:      "shared redis prefix",
			mutate:    func(c *Config) { c.RateLimit.RedisPrefix = c.Blacklist.RedisPrefix },
			wantValid: false,
		},
		{
			name:      "shared prefix ignored when limiter disabled",
			mutate:    func(c *Config) { c.RateLimit.Enabled = false; c.RateLimit.RedisPrefix = c.Blacklist.RedisPrefix },
			wantValid: true,
		},
		{
			name:      "zero upload limit",
			mutate:    func(c *Config) { c.RateLimit.Upload.Limit = 0 },
			wantValid: false,
		},
		{
			name:      "sub-second window",
			mutate:    func(c *Config) { c.RateLimit.General.Window = 500 * time.Millisecond },
			wantValid: false,
		},
		{
			name:      "audit without buffer",
			mutate:    func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := validConfig()
	out := cloneConfig(cfg)
	out.JWT.PrivateKey[0] = 'x'
	if cfg.JWT.PrivateKey[0] == 'x' {
		t.Fatal("clone must not share key bytes")
	}
}
