package gatekeeper_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/gatekeeper"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook that counts commands sent to the counter store.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func countedHarness(t *testing.T) (*harness, *cmdCounter) {
	t.Helper()
	h := newHarness(t)
	counter := &cmdCounter{}
	h.rdb.AddHook(counter)
	if err := h.rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()
	return h, counter
}

func TestRedisBudgetPerOperation(t *testing.T) {
	h, counter := countedHarness(t)
	ctx := context.Background()

	h.register(t, "budget@example.com", "Budget")
	res := h.login(t, "budget@example.com")

	// The first script call may be EVALSHA followed by an EVAL fallback.
	if _, err := h.engine.Allow(ctx, gatekeeper.RateGeneral, "192.0.2.1"); err != nil {
		t.Fatalf("allow: %v", err)
	}

	tests := []struct {
		name   string
		budget int64
		op     func() error
	}{
		{"authenticate", 1, func() error {
			_, err := h.engine.Authenticate(ctx, res.AccessToken)
			return err
		}},
		{"rate limit check", 1, func() error {
			_, err := h.engine.Allow(ctx, gatekeeper.RateGeneral, "192.0.2.1")
			return err
		}},
		{"refresh", 1, func() error {
			_, _, err := h.engine.Refresh(ctx, res.RefreshToken)
			return err
		}},
		{"logout", 2, func() error {
			return h.engine.Logout(ctx, res.AccessToken, res.RefreshToken)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter.Reset()
			if err := tt.op(); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got := counter.commands.Load(); got > tt.budget {
				t.Errorf("%s used %d Redis commands; budget is %d", tt.name, got, tt.budget)
			}
		})
	}
}

func TestConcurrentRequestsNeverExceedCeiling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	policy, ok := h.engine.RatePolicy(gatekeeper.RateAuth)
	if !ok {
		t.Fatal("auth policy missing")
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	var allowed, limited atomic.Int64

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := h.engine.Allow(ctx, gatekeeper.RateAuth, "198.51.100.4")
			switch {
			case err == nil:
				allowed.Add(1)
			case errors.Is(err, gatekeeper.ErrRateLimited):
				limited.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := allowed.Load(); got != int64(policy.Limit) {
		t.Fatalf("expected exactly %d admitted, got %d", policy.Limit, got)
	}
	if got := limited.Load(); got != int64(workers-policy.Limit) {
		t.Fatalf("expected %d rejected, got %d", workers-policy.Limit, got)
	}
}
