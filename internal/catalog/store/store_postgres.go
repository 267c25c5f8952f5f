package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "unearthify/pkg/domain"
	"unearthify/pkg/platform/sentinel"
)

// PostgresStore persists documents in the records table as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, kind string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, status, body, created_at, updated_at
		FROM records
		WHERE kind = $1
		ORDER BY created_at, id`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", kind, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", kind, err)
	}
	return docs, nil
}

func (s *PostgresStore) Get(ctx context.Context, kind string, recordID id.RecordID) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, id, status, body, created_at, updated_at
		FROM records
		WHERE kind = $1 AND id = $2`, kind, uuid.UUID(recordID))
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%s record not found: %w", kind, sentinel.ErrNotFound)
		}
		return Document{}, fmt.Errorf("get %s record: %w", kind, err)
	}
	return doc, nil
}

func (s *PostgresStore) Insert(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, status, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.Kind, uuid.UUID(doc.ID), doc.Status, doc.Body, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s record exists: %w", doc.Kind, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert %s record: %w", doc.Kind, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, doc Document) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET status = $3, body = $4, updated_at = $5
		WHERE kind = $1 AND id = $2`,
		doc.Kind, uuid.UUID(doc.ID), doc.Status, doc.Body, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update %s record: %w", doc.Kind, err)
	}
	return requireAffected(res, doc.Kind)
}

func (s *PostgresStore) Delete(ctx context.Context, kind string, recordID id.RecordID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, kind, uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("delete %s record: %w", kind, err)
	}
	return requireAffected(res, kind)
}

func (s *PostgresStore) Count(ctx context.Context, kind string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = $1`, kind).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s records: %w", kind, err)
	}
	return n, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, kind string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM records
		WHERE kind = $1
		GROUP BY status`, kind)
	if err != nil {
		return nil, fmt.Errorf("count %s records by status: %w", kind, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan %s status count: %w", kind, err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s status counts: %w", kind, err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		doc      Document
		recordID uuid.UUID
	)
	if err := row.Scan(&doc.Kind, &recordID, &doc.Status, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return Document{}, err
	}
	doc.ID = id.RecordID(recordID)
	return doc, nil
}

func requireAffected(res sql.Result, kind string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", kind, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s record not found: %w", kind, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
