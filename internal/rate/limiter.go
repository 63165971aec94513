package rate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Class names a group of routes sharing one policy.
type Class string

const (
	ClassGeneral      Class = "general"
	ClassAuth         Class = "auth"
	ClassUpload       Class = "upload"
	ClassSubscription Class = "subscription"
)

// Policy is the ceiling for one class within one window.
type Policy struct {
	Window time.Duration
	Limit  int
}

// Config holds limiter tuning parameters.
type Config struct {
	Prefix   string
	Policies map[Class]Policy
	FailOpen bool
}

// DefaultPolicies returns the stock ceilings for the four endpoint classes.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassGeneral:      {Window: 15 * time.Minute, Limit: 100},
		ClassAuth:         {Window: time.Hour, Limit: 5},
		ClassUpload:       {Window: time.Hour, Limit: 10},
		ClassSubscription: {Window: 24 * time.Hour, Limit: 3},
	}
}

// Decision is the outcome of one counted request.
type Decision struct {
	Class      Class
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	FailedOpen bool
}

const incrWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

var incrWindowLua = redis.NewScript(incrWindowScript)

// Limiter counts requests per class and client address.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	if cfg.Policies == nil {
		cfg.Policies = DefaultPolicies()
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock used to align windows.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Policy returns the configured policy for class.
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.config.Policies[class]
	return p, ok
}

// Allow increments the counter for (class, addr) and compares it to the ceiling.
func (l *Limiter) Allow(ctx context.Context, class Class, addr string) (Decision, error) {
	policy, ok := l.config.Policies[class]
	if !ok || policy.Window <= 0 || policy.Limit <= 0 {
		return Decision{Class: class, Allowed: true}, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}

	now := l.now()
	window := policy.Window.Milliseconds()
	nowMS := now.UnixMilli()
	start := nowMS - nowMS%window
	resetAt := time.UnixMilli(start + window)

	d := Decision{
		Class:   class,
		Limit:   policy.Limit,
		ResetAt: resetAt,
	}

	ttl := start + window - nowMS
	count, err := incrWindowLua.Run(ctx, l.redis, []string{l.key(class, addr, start)}, ttl).Int64()
	if err != nil {
		d.Allowed = l.config.FailOpen
		d.FailedOpen = l.config.FailOpen
		d.Remaining = policy.Limit
		return d, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	d.Allowed = count <= int64(policy.Limit)
	if remaining := int64(policy.Limit) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
	}
	return d, nil
}

func (l *Limiter) key(class Class, addr string, start int64) string {
	var b strings.Builder
	b.Grow(len(l.config.Prefix) + len(class) + len(addr) + 24)
	b.WriteString(l.config.Prefix)
	b.WriteByte(':')
	b.WriteString(string(class))
	b.WriteByte(':')
	b.WriteString(addr)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(start, 10))
	return b.String()
}
