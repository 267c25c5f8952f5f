package revocation

import (
	"context"
	"log/slog"
	"time"

	"unearthify/pkg/platform/circuit"
)

// FailoverTRL fronts a shared list (Redis) with a local copy. Every
// revocation lands locally first, so a token signed out on this instance stays
// rejected here while the shared list is unreachable. Lookups go to the shared
// list until the breaker opens, then answer from the local copy alone.
type FailoverTRL struct {
	primary TokenRevocationList
	local   *InMemoryTRL
	breaker *circuit.Breaker
	logger  *slog.Logger
	onState func(open bool)
}

type FailoverOption func(*FailoverTRL)

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(f *FailoverTRL) {
		if b != nil {
			f.breaker = b
		}
	}
}

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *FailoverTRL) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithStateHook is called whenever the breaker opens or closes.
func WithStateHook(fn func(open bool)) FailoverOption {
	return func(f *FailoverTRL) {
		f.onState = fn
	}
}

func NewFailoverTRL(primary TokenRevocationList, local *InMemoryTRL, opts ...FailoverOption) *FailoverTRL {
	f := &FailoverTRL{
		primary: primary,
		local:   local,
		breaker: circuit.New("revocation"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RevokeToken always succeeds once the local copy holds the JTI. A shared
// list failure is logged and counted against the breaker.
func (f *FailoverTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := f.local.RevokeToken(ctx, jti, ttl); err != nil {
		return err
	}
	if !f.breaker.Allow() {
		return nil
	}
	if err := f.primary.RevokeToken(ctx, jti, ttl); err != nil {
		f.failure(ctx, err)
		return nil
	}
	f.success(ctx)
	return nil
}

// IsRevoked returns the shared list's error only while the breaker is still
// closed; callers then fail closed.
func (f *FailoverTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if revoked, _ := f.local.IsRevoked(ctx, jti); revoked {
		return true, nil
	}
	if !f.breaker.Allow() {
		return false, nil
	}
	revoked, err := f.primary.IsRevoked(ctx, jti)
	if err != nil {
		if f.failure(ctx, err) {
			return false, nil
		}
		return false, err
	}
	f.success(ctx)
	return revoked, nil
}

func (f *FailoverTRL) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return f.IsRevoked(ctx, jti)
}

// Degraded reports whether lookups are answered locally.
func (f *FailoverTRL) Degraded() bool {
	return f.breaker.IsOpen()
}

// failure records err and reports whether the breaker is now open.
func (f *FailoverTRL) failure(ctx context.Context, err error) bool {
	if f.breaker.RecordFailure() == circuit.Opened {
		f.logger.WarnContext(ctx, "revocation list unreachable, using local copy",
			"breaker", f.breaker.Name(),
			"error", err,
		)
		f.notify(true)
	}
	return f.breaker.IsOpen()
}

func (f *FailoverTRL) success(ctx context.Context) {
	if f.breaker.RecordSuccess() == circuit.Closed {
		f.logger.InfoContext(ctx, "revocation list recovered", "breaker", f.breaker.Name())
		f.notify(false)
	}
}

func (f *FailoverTRL) notify(open bool) {
	if f.onState != nil {
		f.onState(open)
	}
}
