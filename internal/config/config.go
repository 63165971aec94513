// Package config loads the gatekeeper service configuration from a YAML file
// and GATEKEEPER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MrEthical07/gatekeeper"
)

// EnvPrefix is prepended to every environment override, e.g.
// GATEKEEPER_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "GATEKEEPER"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Embedded runs an in-process miniredis instead of dialing Addr.
	// Counters do not survive a restart.
	Embedded bool `mapstructure:"embedded"`
}

type DatabaseConfig struct {
	// Type is "memory" or "postgres".
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	Issuer             string        `mapstructure:"issuer"`
	Audience           string        `mapstructure:"audience"`
	Leeway             time.Duration `mapstructure:"leeway"`
	TrackRefreshTokens bool          `mapstructure:"track_refresh_tokens"`
	BlacklistPrefix    string        `mapstructure:"blacklist_prefix"`
	MinSecretLength    int           `mapstructure:"min_secret_length"`
	DefaultRole        string        `mapstructure:"default_role"`
}

type RatePolicy struct {
	Window time.Duration `mapstructure:"window"`
	Limit  int           `mapstructure:"limit"`
}

type RateLimitConfig struct {
	Enabled      bool       `mapstructure:"enabled"`
	Prefix       string     `mapstructure:"prefix"`
	FailOpen     bool       `mapstructure:"fail_open"`
	General      RatePolicy `mapstructure:"general"`
	Auth         RatePolicy `mapstructure:"auth"`
	Upload       RatePolicy `mapstructure:"upload"`
	Subscription RatePolicy `mapstructure:"subscription"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuditConfig struct {
	Enabled    bool       `mapstructure:"enabled"`
	Sink       string     `mapstructure:"sink"` // "slog" or "nats"
	BufferSize int        `mapstructure:"buffer_size"`
	DropIfFull bool       `mapstructure:"drop_if_full"`
	Exclude    []string   `mapstructure:"exclude"`
	NATS       NATSConfig `mapstructure:"nats"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Name    string `mapstructure:"name"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Histograms bool   `mapstructure:"histograms"`
	Path       string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	d := gatekeeper.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.embedded", false)

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.postgres.migrate_on_start", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", d.JWT.AccessTTL.String())
	v.SetDefault("auth.refresh_token_ttl", d.JWT.RefreshTTL.String())
	v.SetDefault("auth.issuer", d.JWT.Issuer)
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.leeway", d.JWT.Leeway.String())
	v.SetDefault("auth.track_refresh_tokens", d.Refresh.TrackTokens)
	v.SetDefault("auth.blacklist_prefix", d.Blacklist.RedisPrefix)
	v.SetDefault("auth.min_secret_length", d.Account.MinSecretLength)
	v.SetDefault("auth.default_role", d.Account.DefaultRole)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.prefix", d.RateLimit.RedisPrefix)
	v.SetDefault("rate_limit.fail_open", d.RateLimit.FailOpen)
	for name, p := range map[string]gatekeeper.RatePolicy{
		"general":      d.RateLimit.General,
		"auth":         d.RateLimit.Auth,
		"upload":       d.RateLimit.Upload,
		"subscription": d.RateLimit.Subscription,
	} {
		v.SetDefault("rate_limit."+name+".window", p.Window.String())
		v.SetDefault("rate_limit."+name+".limit", p.Limit)
	}

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.sink", "slog")
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)
	v.SetDefault("audit.nats.url", "nats://localhost:4222")
	v.SetDefault("audit.nats.subject", "gatekeeper.audit")
	v.SetDefault("audit.nats.name", "gatekeeper-audit")

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.histograms", d.Metrics.EnableLatencyHistograms)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads configPath, or config.yaml from the working directory and
// /etc/gatekeeper when configPath is empty. A missing default file is not an
// error. Environment variables override both.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gatekeeper")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks service settings and the engine settings derived from them.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}

	switch c.Database.Type {
	case "memory":
	case "postgres":
		if c.Database.Postgres.URL == "" {
			return errors.New("database.postgres.url is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown database.type %q", c.Database.Type)
	}

	if !c.Redis.Embedded && c.Redis.Addr == "" {
		return errors.New("redis.addr must be set unless redis.embedded is true")
	}

	if c.Audit.Enabled {
		switch c.Audit.Sink {
		case "slog":
		case "nats":
			if c.Audit.NATS.URL == "" || c.Audit.NATS.Subject == "" {
				return errors.New("audit.nats.url and audit.nats.subject are required for the nats sink")
			}
		default:
			return fmt.Errorf("unknown audit.sink %q", c.Audit.Sink)
		}
	}

	engineCfg := c.Engine()
	if err := engineCfg.Validate(); err != nil {
		return fmt.Errorf("invalid auth settings: %w", err)
	}
	return nil
}

// Engine maps the service settings onto a library Config. Settings with no
// service key keep their library default.
func (c *Config) Engine() gatekeeper.Config {
	cfg := gatekeeper.DefaultConfig()

	cfg.JWT.PrivateKey = []byte(c.Auth.JWTSecret)
	cfg.JWT.AccessTTL = c.Auth.AccessTokenTTL
	cfg.JWT.RefreshTTL = c.Auth.RefreshTokenTTL
	cfg.JWT.Issuer = c.Auth.Issuer
	cfg.JWT.Audience = c.Auth.Audience
	cfg.JWT.Leeway = c.Auth.Leeway
	cfg.Refresh.TrackTokens = c.Auth.TrackRefreshTokens
	cfg.Blacklist.RedisPrefix = c.Auth.BlacklistPrefix
	cfg.Account.MinSecretLength = c.Auth.MinSecretLength
	cfg.Account.DefaultRole = c.Auth.DefaultRole

	cfg.RateLimit.Enabled = c.RateLimit.Enabled
	cfg.RateLimit.RedisPrefix = c.RateLimit.Prefix
	cfg.RateLimit.FailOpen = c.RateLimit.FailOpen
	cfg.RateLimit.General = gatekeeper.RatePolicy(c.RateLimit.General)
	cfg.RateLimit.Auth = gatekeeper.RatePolicy(c.RateLimit.Auth)
	cfg.RateLimit.Upload = gatekeeper.RatePolicy(c.RateLimit.Upload)
	cfg.RateLimit.Subscription = gatekeeper.RatePolicy(c.RateLimit.Subscription)

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull
	cfg.Audit.Exclude = c.Audit.Exclude

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Histograms
	return cfg
}
