package session

import (
	"context"
	"log/slog"
	"time"
)

func (s *ManagerSuite) TestGuardRedirectsOnExpiredToken() {
	s.Require().NoError(s.store.Save(s.ctx, Session{Token: tokenExpiringAt(s.T(), time.Now().Add(-time.Second))}))

	g, err := s.manager.Guard(s.ctx, 10*time.Millisecond)
	s.Nil(g)
	s.ErrorIs(err, ErrUnauthenticated)
	s.Empty(s.storedToken())
	s.Equal(ReasonExpired, s.awaitNotice(10*time.Millisecond).Reason)
}

func (s *ManagerSuite) TestGuardRedirectsOnMissingToken() {
	_, err := s.manager.Guard(s.ctx, 0)
	s.ErrorIs(err, ErrUnauthenticated)
	s.Equal(ReasonMissing, s.awaitNotice(10*time.Millisecond).Reason)
}

func (s *ManagerSuite) TestGuardRedirectsOnMalformedToken() {
	s.Require().NoError(s.store.Save(s.ctx, Session{Token: "not-a-token"}))

	_, err := s.manager.Guard(s.ctx, 0)
	s.ErrorIs(err, ErrUnauthenticated)
	s.Empty(s.storedToken())
}

func (s *ManagerSuite) TestGuardPollDetectsExpiry() {
	s.signIn()
	g, err := s.manager.Guard(s.ctx, 10*time.Millisecond)
	s.Require().NoError(err)

	s.assertNoNotice(40 * time.Millisecond)
	// Jump the clock past expiry; only the poll can notice, the timer is an hour out.
	s.expireIn(-time.Second)

	s.Equal(ReasonExpired, s.awaitNotice(time.Second).Reason)
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		s.FailNow("poll did not exit after logout")
	}
	s.Empty(s.storedToken())
}

func (s *ManagerSuite) TestGuardStop() {
	s.signIn()
	g, err := s.manager.Guard(s.ctx, 10*time.Millisecond)
	s.Require().NoError(err)

	g.Stop()
	g.Stop()
	s.expireIn(-time.Second)
	s.assertNoNotice(50 * time.Millisecond)
	s.Equal(Authenticated, s.manager.State())
}

func (s *ManagerSuite) TestGuardStopsWithContext() {
	s.signIn()
	ctx, cancel := context.WithCancel(s.ctx)
	g, err := s.manager.Guard(ctx, 10*time.Millisecond)
	s.Require().NoError(err)

	cancel()
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		s.FailNow("poll ignored context cancellation")
	}
}

func (s *ManagerSuite) TestExplicitLogoutStopsGuards() {
	s.signIn()
	g1, err := s.manager.Guard(s.ctx, 10*time.Millisecond)
	s.Require().NoError(err)
	g2, err := s.manager.Guard(s.ctx, 10*time.Millisecond)
	s.Require().NoError(err)

	s.manager.Logout(s.ctx, ReasonSignedOut)
	<-g1.Done()
	<-g2.Done()
	s.Equal(1, s.events.count())
}

func (s *ManagerSuite) TestGuardRejectsSessionWithUnreadableUser() {
	store, err := OpenSQLite(s.ctx, ":memory:")
	s.Require().NoError(err)
	defer store.Close()

	m := NewManager(store, WithLogger(slog.New(slog.DiscardHandler)))
	defer m.Close()
	m.OnLogout(s.events.listen)

	s.Require().NoError(store.Save(s.ctx, Session{Token: tokenExpiringAt(s.T(), s.expiry), User: User{ID: "u-1"}}))
	_, err = store.db.ExecContext(s.ctx, `UPDATE session_kv SET value = '{not json' WHERE key = 'user'`)
	s.Require().NoError(err)

	g, err := m.Guard(s.ctx, 10*time.Millisecond)
	s.Nil(g)
	s.ErrorIs(err, ErrUnauthenticated)
	s.Equal(Unauthenticated, m.State())
	s.Equal(ReasonMissing, s.awaitNotice(10*time.Millisecond).Reason)

	var rows int
	s.Require().NoError(store.db.QueryRowContext(s.ctx, `SELECT COUNT(*) FROM session_kv`).Scan(&rows))
	s.Zero(rows)
}
