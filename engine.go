package gatekeeper

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/gatekeeper/internal/audit"
	"github.com/MrEthical07/gatekeeper/internal/flows"
	"github.com/MrEthical07/gatekeeper/internal/rate"
	"github.com/MrEthical07/gatekeeper/internal/revocation"
	"github.com/MrEthical07/gatekeeper/jwt"
	"github.com/MrEthical07/gatekeeper/password"
	"github.com/MrEthical07/gatekeeper/permission"
	"github.com/redis/go-redis/v9"
)

// Engine is the server-side authentication and authorization core.
// It is safe for concurrent use once built.
type Engine struct {
	config       Config
	registry     *permission.Registry
	roleManager  *permission.RoleManager
	jwtManager   *jwt.Manager
	hasher       *password.Hasher
	dummyHash    string
	revocation   *revocation.Store
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	userProvider UserProvider
	logger       *slog.Logger
	now          func() time.Time
	redis        redis.UniversalClient
	flows        flows.Service
}

// Close flushes the audit dispatcher. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Permissions lists the registered capabilities in bit order.
func (e *Engine) Permissions() []string {
	out := make([]string, 0, e.registry.Count())
	for bit := 0; bit < e.registry.Count(); bit++ {
		if name, ok := e.registry.Name(bit); ok {
			out = append(out, name)
		}
	}
	return out
}

// Roles lists the configured role names.
func (e *Engine) Roles() []string {
	return e.roleManager.Roles()
}

// Ping checks the counter store.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.redis == nil {
		return ErrEngineNotReady
	}
	if err := e.redis.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// NormalizeIdentifier trims and lowercases a login identifier.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// validIdentifier accepts a bare email address.
func validIdentifier(identifier string) bool {
	addr, err := mail.ParseAddress(identifier)
	if err != nil {
		return false
	}
	return addr.Address == identifier && addr.Name == ""
}
