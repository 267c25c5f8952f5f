package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

const (
	DefaultIdleWindow   = 10 * time.Minute
	DefaultPollInterval = 5 * time.Second
)

// ErrUnauthenticated means there is no usable session; the caller must sign in.
var ErrUnauthenticated = errors.New("not signed in")

type State int

const (
	Unauthenticated State = iota
	Authenticated
	LoggingOut
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case LoggingOut:
		return "logging_out"
	default:
		return "unauthenticated"
	}
}

// Reason says why a session ended.
type Reason string

const (
	ReasonExpired      Reason = "expired"
	ReasonIdle         Reason = "idle"
	ReasonSignedOut    Reason = "signed_out"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonMissing      Reason = "missing"
)

func (r Reason) Message() string {
	switch r {
	case ReasonExpired:
		return "Your session has expired. Please sign in again."
	case ReasonIdle:
		return "You were signed out after a period of inactivity."
	case ReasonSignedOut:
		return "You have been signed out."
	case ReasonUnauthorized:
		return "Your session is no longer valid. Please sign in again."
	default:
		return "Please sign in to continue."
	}
}

// Notice is delivered to OnLogout listeners. Receiving one means "show
// Message and go to sign-in".
type Notice struct {
	Reason  Reason
	Message string
}

// Signal is a user interaction that counts as activity for the idle timer.
type Signal string

const (
	SignalPointerMove Signal = "pointer-move"
	SignalClick       Signal = "click"
	SignalKeyPress    Signal = "key-press"
	SignalScroll      Signal = "scroll"
)

func (s Signal) valid() bool {
	switch s {
	case SignalPointerMove, SignalClick, SignalKeyPress, SignalScroll:
		return true
	}
	return false
}

// Manager drives the session state machine. It owns the auto-logout and
// idle timers and every running Guard; Close releases all of them.
type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	closed     bool
	listeners  []func(Notice)
	guards     map[*Guard]struct{}
	autoTimer  *time.Timer
	autoGen    uint64
	idleTimer  *time.Timer
	idleGen    uint64
	idleWindow time.Duration
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now for expiry decisions. Timers still run on
// wall-clock durations.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		guards: make(map[*Guard]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the stored session, or nil.
func (m *Manager) Session(ctx context.Context) (*Session, error) {
	return m.store.Load(ctx)
}

// OnLogout registers fn to be called after every logout. Listeners run on the
// goroutine that triggered the logout, outside the manager's lock; they must
// not block on Guard.Stop since guards are already cancelled by then.
func (m *Manager) OnLogout(fn func(Notice)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SignedIn persists a fresh session and arms the auto-logout timer.
func (m *Manager) SignedIn(ctx context.Context, sess Session) error {
	// The previous session's timer must not fire against the new one.
	m.mu.Lock()
	if m.autoTimer != nil {
		m.autoTimer.Stop()
		m.autoTimer = nil
	}
	m.autoGen++
	m.mu.Unlock()

	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.mu.Lock()
	m.state = Authenticated
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "signed in", "user_id", sess.User.ID)
	return m.ArmAutoLogout(ctx)
}

// ValidToken returns the stored token when it is present and unexpired. A
// missing or expired token ends the session and yields ErrUnauthenticated.
// A valid token read from persistent storage resumes the Authenticated state.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	token, err := m.store.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	switch {
	case token == "":
		m.reject(ctx, ReasonMissing)
		return "", ErrUnauthenticated
	case IsExpired(token, m.now()):
		m.reject(ctx, ReasonExpired)
		return "", ErrUnauthenticated
	}

	m.mu.Lock()
	if m.state == Unauthenticated && !m.closed {
		m.state = Authenticated
	}
	m.mu.Unlock()
	return token, nil
}

// reject ends a session that failed a check. Outside Authenticated there is
// nothing to tear down, but stale storage is still cleared and listeners are
// still told to redirect.
func (m *Manager) reject(ctx context.Context, reason Reason) {
	if m.Logout(ctx, reason) {
		return
	}
	m.mu.Lock()
	if m.state == LoggingOut {
		m.mu.Unlock()
		return
	}
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear session", "error", err)
	}
	notify(listeners, reason)
}

// ArmAutoLogout schedules a logout at the token's expiry, replacing any
// previously armed timer. An already expired, missing or undecodable token
// logs out immediately.
func (m *Manager) ArmAutoLogout(ctx context.Context) error {
	token, err := m.store.Token(ctx)
	if err != nil {
		return fmt.Errorf("read session token: %w", err)
	}
	exp, err := ExpiresAt(token)
	if err != nil {
		m.logger.WarnContext(ctx, "cannot arm auto-logout", "error", err)
		m.Logout(ctx, ReasonExpired)
		return nil
	}
	delay := exp.Sub(m.now())
	if delay <= 0 {
		m.Logout(ctx, ReasonExpired)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != Authenticated {
		return nil
	}
	if m.autoTimer != nil {
		m.autoTimer.Stop()
	}
	m.autoGen++
	gen := m.autoGen
	m.autoTimer = time.AfterFunc(delay, func() { m.fireAuto(gen) })
	return nil
}

func (m *Manager) fireAuto(gen uint64) {
	m.mu.Lock()
	current := gen == m.autoGen && m.autoTimer != nil
	m.mu.Unlock()
	if current {
		m.Logout(context.Background(), ReasonExpired)
	}
}

// StartIdle arms the inactivity timer with window (DefaultIdleWindow when
// window <= 0). Each Activity re-arms it for a full window.
func (m *Manager) StartIdle(window time.Duration) {
	if window <= 0 {
		window = DefaultIdleWindow
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != Authenticated {
		return
	}
	m.idleWindow = window
	m.armIdleLocked()
}

// Activity re-arms the idle timer. It reports false for unknown signals and
// when no idle timer is running.
func (m *Manager) Activity(signal Signal) bool {
	if !signal.valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idleTimer == nil || m.state != Authenticated {
		return false
	}
	m.armIdleLocked()
	return true
}

func (m *Manager) armIdleLocked() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleGen++
	gen := m.idleGen
	m.idleTimer = time.AfterFunc(m.idleWindow, func() { m.fireIdle(gen) })
}

func (m *Manager) fireIdle(gen uint64) {
	m.mu.Lock()
	current := gen == m.idleGen && m.idleTimer != nil
	m.mu.Unlock()
	if current {
		m.Logout(context.Background(), ReasonIdle)
	}
}

// Logout ends an Authenticated session: timers and guards are cancelled, the
// store is cleared and listeners are notified. It reports false, doing
// nothing, when no session is active or a logout is already under way.
func (m *Manager) Logout(ctx context.Context, reason Reason) bool {
	m.mu.Lock()
	if m.state != Authenticated {
		m.mu.Unlock()
		return false
	}
	m.state = LoggingOut
	guards := m.stopAllLocked()
	m.mu.Unlock()

	for _, g := range guards {
		g.cancel()
	}
	if err := m.store.Clear(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear session", "error", err)
	}

	m.mu.Lock()
	m.state = Unauthenticated
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session ended", "reason", string(reason))
	notify(listeners, reason)
	return true
}

// stopAllLocked cancels both timers and detaches every guard, returning them
// so the caller can cancel them without holding the lock.
func (m *Manager) stopAllLocked() []*Guard {
	if m.autoTimer != nil {
		m.autoTimer.Stop()
		m.autoTimer = nil
	}
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	m.autoGen++
	m.idleGen++
	guards := make([]*Guard, 0, len(m.guards))
	for g := range m.guards {
		guards = append(guards, g)
	}
	clear(m.guards)
	return guards
}

// Close stops every timer and guard without touching the stored session.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	guards := m.stopAllLocked()
	m.mu.Unlock()

	for _, g := range guards {
		g.Stop()
	}
}

func notify(listeners []func(Notice), reason Reason) {
	n := Notice{Reason: reason, Message: reason.Message()}
	for _, fn := range listeners {
		fn(n)
	}
}
