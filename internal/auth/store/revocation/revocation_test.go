package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type InMemoryTRLSuite struct {
	suite.Suite
	store *InMemoryTRL
}

func TestInMemoryTRLSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTRLSuite))
}

func (s *InMemoryTRLSuite) SetupTest() {
	s.store = NewInMemoryTRL(WithCleanupInterval(5 * time.Millisecond))
}

func (s *InMemoryTRLSuite) TearDownTest() {
	s.store.Close()
}

func (s *InMemoryTRLSuite) TestRevokeTokenAndIsRevoked() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.RevokeToken(ctx, "jti_123", time.Hour))

	revoked, err := s.store.IsTokenRevoked(ctx, "jti_123")
	require.NoError(s.T(), err)
	assert.True(s.T(), revoked)
}

func (s *InMemoryTRLSuite) TestUnknownJTIIsNotRevoked() {
	revoked, err := s.store.IsRevoked(context.Background(), "missing")
	require.NoError(s.T(), err)
	assert.False(s.T(), revoked)
}

func (s *InMemoryTRLSuite) TestNonPositiveTTLIsIgnored() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.RevokeToken(ctx, "already_expired", 0))
	assert.Zero(s.T(), s.store.Len())
}

func (s *InMemoryTRLSuite) TestCleanupRemovesExpiredEntries() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.RevokeToken(ctx, "jti_cleanup", 5*time.Millisecond))

	require.Eventually(s.T(), func() bool {
		return s.store.Len() == 0
	}, time.Second, 5*time.Millisecond)

	revoked, err := s.store.IsRevoked(ctx, "jti_cleanup")
	require.NoError(s.T(), err)
	assert.False(s.T(), revoked)
}

func (s *InMemoryTRLSuite) TestCloseIsIdempotent() {
	s.store.Close()
	s.store.Close()
}

func TestWithCleanupInterval(t *testing.T) {
	store := NewInMemoryTRL(WithCleanupInterval(123 * time.Millisecond))
	defer store.Close()
	assert.Equal(t, 123*time.Millisecond, store.cleanupInterval)

	fallback := NewInMemoryTRL(WithCleanupInterval(0))
	defer fallback.Close()
	assert.Equal(t, defaultCleanupInterval, fallback.cleanupInterval)
}

type fakeRedis struct {
	keys   map[string]time.Duration
	setErr error
	getErr error
}

func (f *fakeRedis) Set(ctx context.Context, key string, _ any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.keys[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.getErr != nil {
		return redis.NewIntResult(0, f.getErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisTRL(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{keys: map[string]time.Duration{}}
	trl := &RedisTRL{client: fake}

	require.NoError(t, trl.RevokeToken(ctx, "abc", 30*time.Minute))
	assert.Equal(t, 30*time.Minute, fake.keys["unearthify:revoked:abc"])

	revoked, err := trl.IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = trl.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, trl.RevokeToken(ctx, "stale", -time.Second))
	assert.NotContains(t, fake.keys, "unearthify:revoked:stale")
}

func TestRedisTRLErrors(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{keys: map[string]time.Duration{}, setErr: errors.New("down"), getErr: errors.New("down")}
	trl := &RedisTRL{client: fake}

	require.ErrorContains(t, trl.RevokeToken(ctx, "abc", time.Minute), "revoke token")
	_, err := trl.IsRevoked(ctx, "abc")
	require.ErrorContains(t, err, "check token revocation")
}
