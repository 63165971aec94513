package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the manager's session state.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	WarningPending
	LoggingOut
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case WarningPending:
		return "warning_pending"
	case LoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// Config tunes the manager.
type Config struct {
	// PollInterval is the gap between identity re-fetches. Zero disables polling.
	PollInterval time.Duration
	// WarningAfter is the idle time before WarningPending.
	WarningAfter time.Duration
	// LogoutAfter is the idle time before a forced logout.
	LogoutAfter time.Duration
	// FetchTimeout bounds each background fetch.
	FetchTimeout time.Duration

	Clock  Clock
	Logger *slog.Logger
}

// DefaultConfig returns a 30s poll, a warning at 4m30s and a logout at 5m.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		WarningAfter: 4*time.Minute + 30*time.Second,
		LogoutAfter:  5 * time.Minute,
		FetchTimeout: 10 * time.Second,
	}
}

func (c Config) validate() error {
	if c.PollInterval < 0 {
		return errors.New("client: PollInterval must be >= 0")
	}
	if c.WarningAfter <= 0 || c.LogoutAfter <= 0 {
		return errors.New("client: WarningAfter and LogoutAfter must be > 0")
	}
	if c.WarningAfter >= c.LogoutAfter {
		return errors.New("client: WarningAfter must be shorter than LogoutAfter")
	}
	return nil
}

// Manager owns the client session and its three timers: the identity poll, the idle
// warning and the idle logout.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	clock   Clock
	logger  *slog.Logger
	store   SessionStore
	fetcher Fetcher

	state     State
	session   Session
	dismissed bool
	tornDown  bool

	// generation changes on every login, logout and teardown. Work started under an
	// older generation is discarded.
	generation uint64
	// idleSeq changes on every re-arm of the idle timers.
	idleSeq uint64

	pollTimer   Timer
	warnTimer   Timer
	logoutTimer Timer

	listeners map[int]func(State)
	nextID    int
}

// NewManager wires a manager. Call Boot to restore a stored session.
func NewManager(store SessionStore, fetcher Fetcher, cfg Config) (*Manager, error) {
	if store == nil || fetcher == nil {
		return nil, errors.New("client: store and fetcher are required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}

	return &Manager{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		store:     store,
		fetcher:   fetcher,
		listeners: make(map[int]func(State)),
	}, nil
}

// Boot restores the stored session and re-validates it against the server. Any
// failure clears storage and leaves the manager Unauthenticated.
func (m *Manager) Boot(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.tornDown {
		m.mu.Unlock()
		return Unauthenticated, ErrTornDown
	}
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	stored, err := m.store.Load()
	if err != nil {
		m.clearAfterBoot(gen, err)
		if errors.Is(err, ErrNoSession) {
			return Unauthenticated, nil
		}
		return Unauthenticated, err
	}

	fresh, err := m.fetcher.FetchIdentity(ctx, stored)
	if err == nil && !fresh.Complete() {
		err = ErrNoSession
	}
	if err != nil {
		m.clearAfterBoot(gen, err)
		return Unauthenticated, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown || gen != m.generation {
		return m.state, nil
	}
	if err := m.store.Save(fresh); err != nil {
		m.logger.Warn("client: persist session failed", "error", err)
	}
	m.enterAuthenticatedLocked(fresh)
	return m.state, nil
}

func (m *Manager) clearAfterBoot(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	if !errors.Is(cause, ErrNoSession) {
		m.logger.Info("client: stored session rejected", "error", cause)
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("client: clear session failed", "error", err)
	}
	m.session = Session{}
	m.setStateLocked(Unauthenticated)
}

// Login stores a complete session and enters Authenticated.
func (m *Manager) Login(sess Session) error {
	if !sess.Complete() {
		return ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown {
		return ErrTornDown
	}
	if err := m.store.Save(sess); err != nil {
		return err
	}
	m.stopTimersLocked()
	m.generation++
	m.enterAuthenticatedLocked(cloneSession(sess))
	return nil
}

// Logout clears the session immediately, then tells the server. The server call is
// best effort; its result does not change the outcome.
func (m *Manager) Logout(ctx context.Context) {
	prev, ok := m.logoutLocal()
	if !ok || !prev.HasToken() {
		return
	}
	if err := m.fetcher.Logout(ctx, prev); err != nil {
		m.logger.Warn("client: server logout failed", "error", err)
	}
}

func (m *Manager) logoutLocal() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Unauthenticated || m.session.HasToken() {
		return m.logoutLocked()
	}

	// A Boot may still be validating the stored session. Invalidate it and drop
	// the stored token so its result is discarded.
	m.generation++
	stored, loadErr := m.store.Load()
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("client: clear session failed", "error", err)
	}
	if loadErr != nil {
		return Session{}, false
	}
	return stored, true
}

func (m *Manager) logoutLocked() (Session, bool) {
	if m.state == Unauthenticated && !m.session.HasToken() {
		return Session{}, false
	}
	prev := m.session
	m.generation++
	m.stopTimersLocked()
	m.setStateLocked(LoggingOut)
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("client: clear session failed", "error", err)
	}
	m.session = Session{}
	m.dismissed = false
	m.setStateLocked(Unauthenticated)
	return prev, true
}

// OnActivity records user input. It re-arms both idle timers and leaves WarningPending.
func (m *Manager) OnActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown || (m.state != Authenticated && m.state != WarningPending) {
		return
	}
	m.armIdleLocked()
	m.dismissed = false
	m.setStateLocked(Authenticated)
}

// DismissWarning hides the warning. The logout timer keeps running.
func (m *Manager) DismissWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == WarningPending {
		m.dismissed = true
	}
}

// ShowWarning reports whether views should display the idle warning.
func (m *Manager) ShowWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == WarningPending && !m.dismissed
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the current session, if any.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.HasToken() {
		return Session{}, false
	}
	return cloneSession(m.session), true
}

// HasPermission asks the server. Cached roles are never consulted.
func (m *Manager) HasPermission(ctx context.Context, permission string) (bool, error) {
	sess, ok := m.Session()
	if !ok {
		return false, ErrNotAuthenticated
	}
	allowed, err := m.fetcher.Authorize(ctx, sess, permission)
	if errors.Is(err, ErrUnauthorized) {
		m.expire(sess)
	}
	return allowed, err
}

// Subscribe calls fn on every state change until the returned func is called.
// fn runs with the manager locked and must not call back into it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Teardown stops every timer and detaches listeners. Storage is left intact. Safe to
// call more than once.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown {
		return
	}
	m.tornDown = true
	m.generation++
	m.stopTimersLocked()
	m.listeners = make(map[int]func(State))
}

func (m *Manager) enterAuthenticatedLocked(sess Session) {
	m.session = sess
	m.dismissed = false
	m.armIdleLocked()
	m.schedulePollLocked(m.generation)
	m.setStateLocked(Authenticated)
}

func (m *Manager) armIdleLocked() {
	if m.warnTimer != nil {
		m.warnTimer.Stop()
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
	}
	m.idleSeq++
	seq := m.idleSeq
	gen := m.generation
	m.warnTimer = m.clock.AfterFunc(m.cfg.WarningAfter, func() { m.onWarning(gen, seq) })
	m.logoutTimer = m.clock.AfterFunc(m.cfg.LogoutAfter, func() { m.onIdleLogout(gen, seq) })
}

func (m *Manager) onWarning(gen, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown || gen != m.generation || seq != m.idleSeq || m.state != Authenticated {
		return
	}
	m.warnTimer = nil
	m.dismissed = false
	m.setStateLocked(WarningPending)
}

func (m *Manager) onIdleLogout(gen, seq uint64) {
	m.mu.Lock()
	if m.tornDown || gen != m.generation || seq != m.idleSeq ||
		(m.state != Authenticated && m.state != WarningPending) {
		m.mu.Unlock()
		return
	}
	m.logoutTimer = nil
	prev, ok := m.logoutLocked()
	m.mu.Unlock()

	if !ok {
		return
	}
	m.logger.Info("client: idle logout", "idle", m.cfg.LogoutAfter)
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.FetchTimeout)
	defer cancel()
	if err := m.fetcher.Logout(ctx, prev); err != nil {
		m.logger.Warn("client: server logout failed", "error", err)
	}
}

func (m *Manager) schedulePollLocked(gen uint64) {
	if m.cfg.PollInterval <= 0 {
		return
	}
	if m.pollTimer != nil {
		m.pollTimer.Stop()
	}
	m.pollTimer = m.clock.AfterFunc(m.cfg.PollInterval, func() { m.poll(gen) })
}

func (m *Manager) poll(gen uint64) {
	m.mu.Lock()
	if m.tornDown || gen != m.generation || !m.session.HasToken() {
		m.mu.Unlock()
		return
	}
	sess := m.session
	m.pollTimer = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.FetchTimeout)
	fresh, err := m.fetcher.FetchIdentity(ctx, sess)
	cancel()

	m.mu.Lock()
	if m.tornDown || gen != m.generation {
		m.mu.Unlock()
		return
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		prev, ok := m.logoutLocked()
		m.mu.Unlock()
		if ok {
			m.logger.Info("client: session rejected by server", "user_id", userID(prev))
		}
		return
	case err != nil:
		m.logger.Warn("client: identity poll failed", "error", err)
	case fresh.Complete():
		m.session = fresh
		if err := m.store.Save(fresh); err != nil {
			m.logger.Warn("client: persist session failed", "error", err)
		}
	}

	m.schedulePollLocked(gen)
	m.mu.Unlock()
}

func (m *Manager) expire(sess Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.AccessToken != sess.AccessToken {
		return
	}
	m.logoutLocked()
}

func (m *Manager) stopTimersLocked() {
	for _, t := range []Timer{m.pollTimer, m.warnTimer, m.logoutTimer} {
		if t != nil {
			t.Stop()
		}
	}
	m.pollTimer, m.warnTimer, m.logoutTimer = nil, nil, nil
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	for _, fn := range m.listeners {
		fn(s)
	}
}

func userID(s Session) string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
