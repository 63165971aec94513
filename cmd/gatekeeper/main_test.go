package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/internal/config"
	"github.com/MrEthical07/gatekeeper/password"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gatekeeper dev")
}

func TestHashPasswordRoundTrip(t *testing.T) {
	out, err := execute(t, "s3cret-passphrase\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"), hash)

	out, err = execute(t, "s3cret-passphrase\n", "hash-password", "--verify", hash)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = execute(t, "other-passphrase\n", "hash-password", "--verify", hash)
	assert.Error(t, err)
}

func TestHashPasswordVerifiesLegacyBcrypt(t *testing.T) {
	b, err := password.NewBcrypt(4)
	require.NoError(t, err)
	hash, err := b.Hash("legacy-secret")
	require.NoError(t, err)

	out, err := execute(t, "legacy-secret", "hash-password", "--verify", hash)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestHashPasswordRejectsEmptyInput(t *testing.T) {
	_, err := execute(t, "", "hash-password")
	assert.Error(t, err)
	_, err = execute(t, "\n", "hash-password")
	assert.Error(t, err)
}

func writeMemoryConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  type: memory
auth:
  jwt_secret: "`+testSecret+`"
`), 0o600))
	return path
}

func TestMigrateRequiresPostgres(t *testing.T) {
	_, err := execute(t, "", "--config", writeMemoryConfig(t), "migrate")
	assert.ErrorIs(t, err, errNeedsPostgres)
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	_, err := execute(t, "", "--config", writeMemoryConfig(t), "set-role", "--identifier", "a@b.co", "--role", "emperor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gatekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: short\n"), 0o600))

	_, err := execute(t, "", "--config", path, "serve", "--embedded-redis")
	assert.Error(t, err)
}

func testApp(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load(writeMemoryConfig(t))
	require.NoError(t, err)
	cfg.Redis.Embedded = true
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAppServesHealthAndMetrics(t *testing.T) {
	a := testApp(t)
	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gatekeeper_login_success_total")
}

func TestAppRegisterAndLogin(t *testing.T) {
	a := testApp(t)
	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()

	body := `{"identifier":"ops@example.com","secret":"correct-horse-battery","name":"Ops"}`
	resp, err := http.Post(srv.URL+"/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"identifier":"ops@example.com","secret":"correct-horse-battery"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))

	assert.Equal(t, uint64(1), a.engine.MetricsSnapshot().Counters[gatekeeper.MetricLoginSuccess])
}

func TestAppRunStopsOnCancel(t *testing.T) {
	a := testApp(t)
	a.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestLoadtestSmallRun(t *testing.T) {
	var out bytes.Buffer
	err := runLoadtest(context.Background(), &out, loadtestOptions{users: 3, concurrency: 2, ops: 20})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "authenticate: ops=20 failures=0")
	assert.Contains(t, out.String(), "refresh: ops=20 failures=0")
}

func TestComputeStats(t *testing.T) {
	samples := []time.Duration{5, 1, 4, 2, 3}
	s := computeStats(time.Second, samples, 1)
	assert.Equal(t, 5, s.ops)
	assert.Equal(t, int64(1), s.failures)
	assert.Equal(t, time.Duration(3), s.p50)
	assert.Equal(t, time.Duration(5), percentile(samples, 100))
	assert.Equal(t, time.Duration(1), percentile(samples, 0))

	empty := computeStats(time.Second, nil, 2)
	assert.Equal(t, 0, empty.ops)
	assert.Equal(t, int64(2), empty.failures)
}
