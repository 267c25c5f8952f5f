package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"unearthify/internal/catalog/models"
	id "unearthify/pkg/domain"
	"unearthify/pkg/requestcontext"
)

// Repository gives typed access to one kind of record in a DocumentStore.
type Repository[E models.Entity] struct {
	docs   DocumentStore
	kind   models.Kind
	newFn  func() E
	logger *slog.Logger
}

// NewRepository binds newFn's kind to docs. newFn must return a fresh,
// non-nil entity each call.
func NewRepository[E models.Entity](docs DocumentStore, newFn func() E, logger *slog.Logger) *Repository[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository[E]{
		docs:   docs,
		kind:   newFn().Kind(),
		newFn:  newFn,
		logger: logger,
	}
}

func (r *Repository[E]) Kind() models.Kind { return r.kind }

// List returns every record of the kind. Documents that no longer decode are
// logged and left out.
func (r *Repository[E]) List(ctx context.Context) ([]E, error) {
	docs, err := r.docs.List(ctx, r.kind.String())
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(docs))
	for _, doc := range docs {
		e, err := r.decode(doc)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable record",
				"kind", r.kind.String(),
				"record_id", doc.ID.String(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository[E]) Get(ctx context.Context, recordID id.RecordID) (E, error) {
	var zero E
	doc, err := r.docs.Get(ctx, r.kind.String(), recordID)
	if err != nil {
		return zero, err
	}
	e, err := r.decode(doc)
	if err != nil {
		return zero, fmt.Errorf("decode %s record %s: %w", r.kind, recordID, err)
	}
	return e, nil
}

func (r *Repository[E]) Create(ctx context.Context, e E) error {
	doc, err := r.encode(e)
	if err != nil {
		return err
	}
	return r.docs.Insert(ctx, doc)
}

func (r *Repository[E]) Update(ctx context.Context, e E) error {
	doc, err := r.encode(e)
	if err != nil {
		return err
	}
	return r.docs.Update(ctx, doc)
}

func (r *Repository[E]) Delete(ctx context.Context, recordID id.RecordID) error {
	return r.docs.Delete(ctx, r.kind.String(), recordID)
}

func (r *Repository[E]) encode(e E) (Document, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s record: %w", r.kind, err)
	}
	base := e.Base()
	doc := Document{
		Kind:      r.kind.String(),
		ID:        base.ID,
		Body:      body,
		CreatedAt: base.CreatedAt,
		UpdatedAt: base.UpdatedAt,
	}
	if m, ok := any(e).(models.Moderated); ok {
		doc.Status = string(m.Mod().Status)
	}
	return doc, nil
}

// decode trusts the table columns over the JSON body for the record header.
func (r *Repository[E]) decode(doc Document) (E, error) {
	e := r.newFn()
	if err := json.Unmarshal(doc.Body, e); err != nil {
		var zero E
		return zero, err
	}
	base := e.Base()
	base.ID = doc.ID
	base.CreatedAt = doc.CreatedAt
	base.UpdatedAt = doc.UpdatedAt
	if m, ok := any(e).(models.Moderated); ok && doc.Status != "" {
		m.Mod().Status = models.Status(doc.Status)
	}
	return e, nil
}
