package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/gatekeeper"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	testChdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	d := gatekeeper.DefaultConfig()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, d.JWT.AccessTTL, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, d.JWT.RefreshTTL, cfg.Auth.RefreshTokenTTL)
	assert.True(t, cfg.Auth.TrackRefreshTokens)
	assert.True(t, cfg.RateLimit.FailOpen)
	assert.Equal(t, RatePolicy{Window: time.Hour, Limit: 5}, cfg.RateLimit.Auth)
	assert.Equal(t, RatePolicy{Window: 15 * time.Minute, Limit: 100}, cfg.RateLimit.General)
	assert.Equal(t, RatePolicy{Window: time.Hour, Limit: 10}, cfg.RateLimit.Upload)
	assert.Equal(t, RatePolicy{Window: 24 * time.Hour, Limit: 3}, cfg.RateLimit.Subscription)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// No secret is shipped, so defaults alone do not validate.
	assert.Error(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  trust_proxy: true
redis:
  embedded: true
auth:
  jwt_secret: "`+testSecret+`"
  access_token_ttl: 10m
  refresh_token_ttl: 48h
rate_limit:
  fail_open: false
  auth:
    window: 30m
    limit: 7
logging:
  level: debug
  format: text
audit:
  exclude: [authenticate_rejected, rate_limit_triggered]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Server.TrustProxy)
	assert.True(t, cfg.Redis.Embedded)
	assert.Equal(t, 10*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.False(t, cfg.RateLimit.FailOpen)
	assert.Equal(t, RatePolicy{Window: 30 * time.Minute, Limit: 7}, cfg.RateLimit.Auth)
	assert.Equal(t, 100, cfg.RateLimit.General.Limit, "untouched classes keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"authenticate_rejected", "rate_limit_triggered"}, cfg.Audit.Exclude)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "`+testSecret+`"
database:
  type: memory
`)
	t.Setenv("GATEKEEPER_DATABASE_TYPE", "postgres")
	t.Setenv("GATEKEEPER_DATABASE_POSTGRES_URL", "postgres://gk:gk@localhost:5432/gk")
	t.Setenv("GATEKEEPER_RATE_LIMIT_AUTH_LIMIT", "11")
	t.Setenv("GATEKEEPER_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://gk:gk@localhost:5432/gk", cfg.Database.Postgres.URL)
	assert.Equal(t, 11, cfg.RateLimit.Auth.Limit)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	testChdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Auth.JWTSecret = testSecret
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"unknown store", func(c *Config) { c.Database.Type = "sqlite" }},
		{"postgres without url", func(c *Config) { c.Database.Type = "postgres" }},
		{"no redis", func(c *Config) { c.Redis.Addr = "" }},
		{"unknown audit sink", func(c *Config) { c.Audit.Enabled = true; c.Audit.Sink = "kafka" }},
		{"nats without subject", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.Sink = "nats"
			c.Audit.NATS.Subject = ""
		}},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"refresh not longer than access", func(c *Config) { c.Auth.RefreshTokenTTL = c.Auth.AccessTokenTTL }},
		{"zero rate limit", func(c *Config) { c.RateLimit.Upload.Limit = 0 }},
		{"shared prefixes", func(c *Config) { c.RateLimit.Prefix = c.Auth.BlacklistPrefix }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("embedded redis needs no addr", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Redis.Addr = ""
		cfg.Redis.Embedded = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestEngineMapping(t *testing.T) {
	cfg := validConfig(t)
	cfg.Auth.Audience = "app"
	cfg.RateLimit.Subscription = RatePolicy{Window: time.Hour, Limit: 1}
	cfg.Metrics.Histograms = false
	cfg.Audit.Exclude = []string{gatekeeper.AuditAuthenticateReject}

	ec := cfg.Engine()
	assert.Equal(t, []byte(testSecret), ec.JWT.PrivateKey)
	assert.Equal(t, "hs256", ec.JWT.SigningMethod)
	assert.Equal(t, "app", ec.JWT.Audience)
	assert.Equal(t, gatekeeper.RatePolicy{Window: time.Hour, Limit: 1}, ec.RateLimit.Subscription)
	assert.Equal(t, cfg.Auth.BlacklistPrefix, ec.Blacklist.RedisPrefix)
	assert.False(t, ec.Metrics.EnableLatencyHistograms)
	assert.Equal(t, gatekeeper.DefaultConfig().Password, ec.Password)
	assert.Equal(t, []string{gatekeeper.AuditAuthenticateReject}, ec.Audit.Exclude)
}

// testChdir stands in for testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it afterwards.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
