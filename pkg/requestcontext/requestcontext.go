// Package requestcontext carries request-scoped values (request ID, request time,
// authenticated principal) through context.Context.
package requestcontext

import (
	"context"
	"time"

	id "unearthify/pkg/domain"
)

type (
	requestIDKey struct{}
	timeKey      struct{}
	userIDKey    struct{}
	tokenIDKey   struct{}
	expiryKey    struct{}
	clientIPKey  struct{}
	roleKey      struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID, or "" outside of an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins "now" for the lifetime of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now() for workers,
// CLI commands and tests that never ran the middleware.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

// WithToken records the JTI and expiry of the bearer token that authenticated
// the request so sign-out can revoke exactly that token.
func WithToken(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, tokenIDKey{}, jti)
	return context.WithValue(ctx, expiryKey{}, expiresAt)
}

func TokenID(ctx context.Context) string {
	if v, ok := ctx.Value(tokenIDKey{}).(string); ok {
		return v
	}
	return ""
}

func TokenExpiry(ctx context.Context) time.Time {
	if v, ok := ctx.Value(expiryKey{}).(time.Time); ok {
		return v
	}
	return time.Time{}
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// Role returns the role claim of the authenticated principal.
func Role(ctx context.Context) string {
	if v, ok := ctx.Value(roleKey{}).(string); ok {
		return v
	}
	return ""
}
