package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	newStore func() (Store, func())
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() (Store, func()) {
		return NewMemoryStore(), func() {}
	}})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() (Store, func()) {
		s, err := OpenSQLite(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return s, func() { _ = s.Close() }
	}})
}

func (s *StoreSuite) TestEmptyStore() {
	store, done := s.newStore()
	defer done()
	ctx := context.Background()

	tok, err := store.Token(ctx)
	s.Require().NoError(err)
	s.Empty(tok)

	sess, err := store.Load(ctx)
	s.Require().NoError(err)
	s.Nil(sess)
}

func (s *StoreSuite) TestSaveLoadClear() {
	store, done := s.newStore()
	defer done()
	ctx := context.Background()

	want := Session{Token: "tok-1", User: User{ID: "u-1", Email: "curator@unearthify.test", Role: "admin"}}
	s.Require().NoError(store.Save(ctx, want))

	tok, err := store.Token(ctx)
	s.Require().NoError(err)
	s.Equal("tok-1", tok)

	got, err := store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(&want, got)

	s.Require().NoError(store.Save(ctx, Session{Token: "tok-2", User: want.User}))
	tok, _ = store.Token(ctx)
	s.Equal("tok-2", tok, "save replaces the previous session")

	s.Require().NoError(store.Clear(ctx))
	tok, _ = store.Token(ctx)
	s.Empty(tok)
}

func (s *StoreSuite) TestSaveDoesNotValidate() {
	store, done := s.newStore()
	defer done()
	ctx := context.Background()

	s.Require().NoError(store.Save(ctx, Session{Token: "garbage"}))
	tok, err := store.Token(ctx)
	s.Require().NoError(err)
	s.Equal("garbage", tok)
}

func TestSQLiteStoreCorruptUserIsNoSession(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Save(ctx, Session{Token: "tok"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.ExecContext(ctx, `UPDATE session_kv SET value = '{not json' WHERE key = 'user'`); err != nil {
		t.Fatal(err)
	}

	sess, err := store.Load(ctx)
	if err != nil || sess != nil {
		t.Fatalf("want (nil, nil), got (%v, %v)", sess, err)
	}
	token, err := store.Token(ctx)
	if err != nil || token != "" {
		t.Fatalf("want empty token, got (%q, %v)", token, err)
	}
}
