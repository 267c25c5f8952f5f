package session

import (
	"context"
	"sync"
	"time"
)

// Guard keeps a protected view alive: it polls the stored token and logs
// out the moment it expires. Stop tears the poll down.
type Guard struct {
	m        *Manager
	cancelFn context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// Guard admits the caller only with a present, unexpired token. On success
// it arms the auto-logout timer and starts polling every pollInterval
// (DefaultPollInterval when <= 0). Otherwise the session is cleared,
// listeners are notified and ErrUnauthenticated is returned.
func (m *Manager) Guard(ctx context.Context, pollInterval time.Duration) (*Guard, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if _, err := m.ValidToken(ctx); err != nil {
		return nil, err
	}
	if err := m.ArmAutoLogout(ctx); err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	g := &Guard{m: m, cancelFn: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if m.closed || m.state != Authenticated {
		m.mu.Unlock()
		cancel()
		close(g.done)
		return nil, ErrUnauthenticated
	}
	m.guards[g] = struct{}{}
	m.mu.Unlock()

	go g.poll(pollCtx, pollInterval)
	return g, nil
}

func (g *Guard) poll(ctx context.Context, interval time.Duration) {
	defer close(g.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			token, err := g.m.store.Token(ctx)
			if err != nil {
				g.m.logger.WarnContext(ctx, "session poll failed", "error", err)
				continue
			}
			if token == "" || IsExpired(token, g.m.now()) {
				// Logout cancels ctx; run it detached so the store clear completes.
				g.m.Logout(context.WithoutCancel(ctx), ReasonExpired)
				return
			}
		}
	}
}

func (g *Guard) cancel() {
	g.once.Do(g.cancelFn)
}

// Stop cancels the poll and waits for it to exit. Safe to call repeatedly.
func (g *Guard) Stop() {
	g.cancel()
	<-g.done

	g.m.mu.Lock()
	delete(g.m.guards, g)
	g.m.mu.Unlock()
}

// Done is closed once the poll has exited.
func (g *Guard) Done() <-chan struct{} {
	return g.done
}
