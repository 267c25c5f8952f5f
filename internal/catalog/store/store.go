// Package store keeps every catalog record in one document table keyed by
// (kind, id). Repository layers typed access on top of it.
package store

import (
	"context"
	"time"

	id "unearthify/pkg/domain"
)

// Document is a stored record. Status is copied out of Body for moderated
// kinds so counts and filters do not need to decode JSON.
type Document struct {
	Kind      string
	ID        id.RecordID
	Status    string
	Body      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentStore is the single backing store for catalog records.
// Error Contract: Get, Update and Delete return sentinel.ErrNotFound for
// unknown records; Insert returns sentinel.ErrAlreadyUsed for a taken ID.
type DocumentStore interface {
	List(ctx context.Context, kind string) ([]Document, error)
	Get(ctx context.Context, kind string, recordID id.RecordID) (Document, error)
	Insert(ctx context.Context, doc Document) error
	Update(ctx context.Context, doc Document) error
	Delete(ctx context.Context, kind string, recordID id.RecordID) error
	Count(ctx context.Context, kind string) (int, error)
	CountByStatus(ctx context.Context, kind string) (map[string]int, error)
}
