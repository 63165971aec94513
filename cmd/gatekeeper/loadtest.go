package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	mrand "math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/password"
	"github.com/MrEthical07/gatekeeper/userstore"
)

type loadtestOptions struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
}

func loadtestCmd() *cobra.Command {
	opts := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure authenticate and refresh throughput against Redis",
		Long: `loadtest seeds in-memory accounts, logs each one in, then runs an
authenticate phase and a refresh phase and prints latency percentiles.
Without --redis-addr an embedded Redis is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.users <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return fmt.Errorf("users, concurrency and ops must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.users, "users", 1000, "number of accounts to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 50000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; empty starts an embedded redis")
	return cmd
}

type loadSession struct {
	access  string
	refresh string
}

func runLoadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	addr := opts.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	cfg := gatekeeper.DefaultConfig()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	cfg.JWT.PrivateKey = secret
	cfg.RateLimit.Enabled = false
	// Hashing cost is not what this measures.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	users := userstore.NewMemory()
	engine, err := gatekeeper.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPermissions(gatekeeper.DefaultPermissions()).
		WithRoles(gatekeeper.DefaultRoles()).
		WithUserProvider(users).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	const secretText = "loadtest-password"
	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(secretText)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "seeding %d accounts...\n", opts.users)
	startSeed := time.Now()
	sessions := make([]loadSession, opts.users)
	run := hex.EncodeToString(secret[:4])
	for i := range sessions {
		identifier := fmt.Sprintf("load-%s-%d@example.com", run, i)
		if _, err := users.CreateUser(ctx, gatekeeper.CreateUserInput{
			Identifier:   identifier,
			Name:         "Load Test",
			PasswordHash: hash,
			Role:         gatekeeper.RoleUser,
		}); err != nil {
			return err
		}
		res, err := engine.Login(ctx, identifier, secretText)
		if err != nil {
			return fmt.Errorf("login %s: %w", identifier, err)
		}
		sessions[i] = loadSession{access: res.AccessToken, refresh: res.RefreshToken}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(opts.ops, opts.concurrency, len(sessions), func(i int) error {
		_, err := engine.Authenticate(ctx, sessions[i].access)
		return err
	})
	refreshStats := runPhase(opts.ops, opts.concurrency, len(sessions), func(i int) error {
		_, _, err := engine.Refresh(ctx, sessions[i].refresh)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authenticate", authStats)
	printStats(out, "refresh", refreshStats)
	return nil
}

// runPhase calls op ops times across concurrency workers, each call on a
// random index below n.
func runPhase(ops, concurrency, n int, op func(i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(n))
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
