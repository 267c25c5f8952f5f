package revocation

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = 5 * time.Minute

// TokenRevocationList holds the JTIs of signed-out tokens until they would
// have expired anyway.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InMemoryTRL is a process-local TokenRevocationList. Use RedisTRL when more
// than one server instance runs.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> expiry

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
	done            chan struct{}
}

type Option func(*InMemoryTRL)

func WithCleanupInterval(d time.Duration) Option {
	return func(t *InMemoryTRL) {
		if d > 0 {
			t.cleanupInterval = d
		}
	}
}

// NewInMemoryTRL starts a cleanup goroutine; call Close to stop it.
func NewInMemoryTRL(opts ...Option) *InMemoryTRL {
	trl := &InMemoryTRL{
		revoked:         make(map[string]time.Time),
		cleanupInterval: defaultCleanupInterval,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(trl)
	}
	go trl.cleanup()
	return trl
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	expiry, exists := t.revoked[jti]
	if !exists {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

// IsTokenRevoked satisfies the auth middleware's revocation checker.
func (t *InMemoryTRL) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return t.IsRevoked(ctx, jti)
}

// Len reports how many entries are held, expired or not.
func (t *InMemoryTRL) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.revoked)
}

// Close stops the cleanup goroutine and waits for it to exit.
func (t *InMemoryTRL) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

func (t *InMemoryTRL) cleanup() {
	defer close(t.done)
	ticker := time.NewTicker(t.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.purge(time.Now())
		}
	}
}

func (t *InMemoryTRL) purge(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for jti, expiry := range t.revoked {
		if !now.Before(expiry) {
			delete(t.revoked, jti)
		}
	}
}
