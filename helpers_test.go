package gatekeeper_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const testPassword = "correct-horse-battery"

type testClock struct {
	mu  sync.Mutex
	now time.Time
	mr  *miniredis.Miniredis
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the engine clock and the miniredis TTL clock together.
func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	if c.mr != nil {
		c.mr.FastForward(d)
	}
}

type harness struct {
	engine *gatekeeper.Engine
	users  *userstore.Memory
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
}

func testConfig() gatekeeper.Config {
	cfg := gatekeeper.DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	cfg.JWT.Leeway = 5 * time.Second
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newHarness(t *testing.T, mutate ...func(*gatekeeper.Config)) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// Mid-window start so rate-limit rollover is exercised by Advance.
	clock := &testClock{now: time.Date(2026, 5, 4, 10, 7, 0, 0, time.UTC), mr: mr}
	users := userstore.NewMemory().WithClock(clock.Now)

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	engine, err := gatekeeper.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPermissions(gatekeeper.DefaultPermissions()).
		WithRoles(gatekeeper.DefaultRoles()).
		WithUserProvider(users).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &harness{engine: engine, users: users, mr: mr, rdb: rdb, clock: clock}
}

func (h *harness) register(t *testing.T, identifier, name string) gatekeeper.UserProjection {
	t.Helper()
	u, err := h.engine.Register(context.Background(), gatekeeper.RegisterRequest{
		Identifier: identifier,
		Secret:     testPassword,
		Name:       name,
	})
	if err != nil {
		t.Fatalf("register %s failed: %v", identifier, err)
	}
	return u
}

func (h *harness) login(t *testing.T, identifier string) *gatekeeper.LoginResult {
	t.Helper()
	res, err := h.engine.Login(context.Background(), identifier, testPassword)
	if err != nil {
		t.Fatalf("login %s failed: %v", identifier, err)
	}
	return res
}
