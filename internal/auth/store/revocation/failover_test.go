package revocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"unearthify/pkg/platform/circuit"
)

type scriptedList struct {
	mu      sync.Mutex
	err     error
	revoked map[string]bool
	calls   int
}

func (l *scriptedList) RevokeToken(_ context.Context, jti string, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	l.revoked[jti] = true
	return nil
}

func (l *scriptedList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	return l.revoked[jti], nil
}

func (l *scriptedList) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

type FailoverTRLSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	primary *scriptedList
	local   *InMemoryTRL
	states  []bool
	trl     *FailoverTRL
}

func TestFailoverTRLSuite(t *testing.T) {
	suite.Run(t, new(FailoverTRLSuite))
}

func (s *FailoverTRLSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.primary = &scriptedList{revoked: map[string]bool{}}
	s.local = NewInMemoryTRL()
	s.states = nil
	breaker := circuit.New("revocation",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return s.now }),
	)
	s.trl = NewFailoverTRL(s.primary, s.local,
		WithBreaker(breaker),
		WithStateHook(func(open bool) { s.states = append(s.states, open) }),
	)
}

func (s *FailoverTRLSuite) TearDownTest() {
	s.local.Close()
}

func (s *FailoverTRLSuite) TestHealthyPrimaryIsAuthoritative() {
	s.Require().NoError(s.trl.RevokeToken(s.ctx, "a", time.Hour))
	s.True(s.primary.revoked["a"])

	// revoked by another instance
	s.primary.revoked["b"] = true
	revoked, err := s.trl.IsTokenRevoked(s.ctx, "b")
	s.Require().NoError(err)
	s.True(revoked)
	s.False(s.trl.Degraded())
}

func (s *FailoverTRLSuite) TestLookupErrorBelowThresholdFailsClosed() {
	s.primary.fail(errors.New("dial tcp: connection refused"))
	_, err := s.trl.IsRevoked(s.ctx, "x")
	s.Error(err)
	s.False(s.trl.Degraded())
}

func (s *FailoverTRLSuite) TestOpensAndAnswersLocally() {
	s.primary.fail(errors.New("timeout"))
	s.Require().NoError(s.trl.RevokeToken(s.ctx, "signed-out", time.Hour))

	_, err := s.trl.IsRevoked(s.ctx, "other")
	s.NoError(err, "second failure opens the breaker")
	s.True(s.trl.Degraded())
	s.Equal([]bool{true}, s.states)

	calls := s.primary.calls
	revoked, err := s.trl.IsRevoked(s.ctx, "signed-out")
	s.Require().NoError(err)
	s.True(revoked)
	revoked, err = s.trl.IsRevoked(s.ctx, "unknown")
	s.Require().NoError(err)
	s.False(revoked)
	s.Equal(calls, s.primary.calls, "open breaker skips the primary")
}

func (s *FailoverTRLSuite) TestRecoversAfterCooldown() {
	s.primary.fail(errors.New("timeout"))
	_, _ = s.trl.IsRevoked(s.ctx, "x")
	_, _ = s.trl.IsRevoked(s.ctx, "x")
	s.Require().True(s.trl.Degraded())

	s.primary.fail(nil)
	s.now = s.now.Add(time.Minute)
	_, err := s.trl.IsRevoked(s.ctx, "x")
	s.Require().NoError(err)
	s.False(s.trl.Degraded())
	s.Equal([]bool{true, false}, s.states)
}
