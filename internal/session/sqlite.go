package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_kv (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`

// SQLiteStore keeps the session in a key/value table so it survives restarts
// of the admin CLI.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the session database at path.
// ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore creates the schema on db if missing.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session[%s]: %w", key, err)
	}
	return value, nil
}

// Token reports "" whenever Load would report no session, so a token is
// never handed out alongside an unreadable user record.
func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	sess, err := s.Load(ctx)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.Token, nil
}

// Load treats an unreadable user record as no session.
func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	token, err := s.get(ctx, keyToken)
	if err != nil || token == "" {
		return nil, err
	}
	raw, err := s.get(ctx, keyUser)
	if err != nil {
		return nil, err
	}
	var user User
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, nil
		}
	}
	return &Session{Token: token, User: user}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const upsert = `
		INSERT INTO session_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.ExecContext(ctx, upsert, keyToken, sess.Token); err != nil {
		return fmt.Errorf("write session token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, keyUser, string(user)); err != nil {
		return fmt.Errorf("write session user: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_kv`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
