package gatekeeper

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/gatekeeper/internal/audit"
	"github.com/MrEthical07/gatekeeper/internal/rate"
	"github.com/MrEthical07/gatekeeper/internal/revocation"
	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/password"
	"github.com/MrEthical07/gatekeeper/permission"
	"github.com/redis/go-redis/v9"
)

// timingProbe is hashed once at build time; unknown identifiers are verified against it.
const timingProbe = "gatekeeper-unknown-identifier-probe"

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	permissions []string
	roles       map[string][]string

	userProvider UserProvider
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the counter store shared by the rate limiter and the blacklist.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPermissions sets the fixed capability list. Order determines mask bits.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles maps every role to its default capabilities.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for token issuance, verification, and rate windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(b.permissions) == 0 {
		return nil, errors.New("permissions must be provided")
	}
	if len(b.roles) == 0 {
		return nil, errors.New("roles must be provided")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- PERMISSION REGISTRY --------
	registry := permission.NewRegistry()
	for _, p := range b.permissions {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	// -------- ROLE MANAGER --------
	roleManager := permission.NewRoleManager(registry)
	for roleName, permList := range b.roles {
		if err := roleManager.RegisterRole(roleName, permList); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	if !roleManager.Has(cfg.Account.DefaultRole) {
		return nil, errors.New("Account DefaultRole does not exist in role manager")
	}

	// -------- TOKENS / PASSWORDS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(timingProbe)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		registry:     registry,
		roleManager:  roleManager,
		jwtManager:   jm,
		hasher:       hasher,
		dummyHash:    dummyHash,
		userProvider: b.userProvider,
		logger:       logger,
		now:          now,
		redis:        b.redis,
	}

	// -------- COUNTER STORE --------
	engine.revocation = revocation.NewStore(b.redis, cfg.Blacklist.RedisPrefix, cfg.JWT.Leeway).WithClock(now)
	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:   cfg.RateLimit.RedisPrefix,
			FailOpen: cfg.RateLimit.FailOpen,
			Policies: map[rate.Class]rate.Policy{
				rate.ClassGeneral:      rate.Policy(cfg.RateLimit.General),
				rate.ClassAuth:         rate.Policy(cfg.RateLimit.Auth),
				rate.ClassUpload:       rate.Policy(cfg.RateLimit.Upload),
				rate.ClassSubscription: rate.Policy(cfg.RateLimit.Subscription),
			},
		}).WithClock(now)
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Exclude:    cfg.Audit.Exclude,
		OnDrop: func(ev internalaudit.Event) {
			logger.Debug("audit event dropped", "event_type", ev.EventType)
		},
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.initFlowDeps()

	b.built = true

	return engine, nil
}
