package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"unearthify/internal/catalog/changefeed"
	"unearthify/internal/catalog/models"
	"unearthify/internal/listing"
	"unearthify/internal/platform/blob"
	"unearthify/internal/platform/tracer"
	id "unearthify/pkg/domain"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/platform/sentinel"
	platformsync "unearthify/pkg/platform/sync"
	"unearthify/pkg/platform/validation"
	"unearthify/pkg/requestcontext"
)

// Repository is typed storage for one kind.
// Error Contract: Get, Update and Delete return sentinel.ErrNotFound for
// unknown records.
type Repository[E models.Entity] interface {
	Kind() models.Kind
	List(ctx context.Context) ([]E, error)
	Get(ctx context.Context, recordID id.RecordID) (E, error)
	Create(ctx context.Context, e E) error
	Update(ctx context.Context, e E) error
	Delete(ctx context.Context, recordID id.RecordID) error
}

// Service implements CRUD, moderation and image upload for one kind.
type Service[E models.Entity] struct {
	repo      Repository[E]
	fields    listing.Fields[E]
	kind      models.Kind
	moderated bool
	imaged    bool
	// locks serialises mutations of one record.
	locks platformsync.KeyedMutex

	blobs  blob.Store
	feed   *changefeed.Feed
	tracer tracer.Tracer
	logger *slog.Logger
}

func New[E models.Entity](repo Repository[E], fields listing.Fields[E], opts ...Option) *Service[E] {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = tracer.Noop()
	}

	var zero E
	_, moderated := any(zero).(models.Moderated)
	_, imaged := any(zero).(models.Imaged)
	return &Service[E]{
		repo:      repo,
		fields:    fields,
		kind:      repo.Kind(),
		moderated: moderated,
		imaged:    imaged,
		blobs:     cfg.blobs,
		feed:      cfg.feed,
		tracer:    cfg.tracer,
		logger:    cfg.logger,
	}
}

func (s *Service[E]) Kind() models.Kind { return s.kind }

// Moderated reports whether records of this kind go through review.
func (s *Service[E]) Moderated() bool { return s.moderated }

// Imaged reports whether records of this kind accept an image upload.
func (s *Service[E]) Imaged() bool { return s.imaged }

// List runs the list pipeline over the kind. Soft-deleted records only show
// up when the query filters on status.
func (s *Service[E]) List(ctx context.Context, q listing.Query) (page listing.Page[E], err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list", attribute.String("kind", s.kind.String()))
	defer func() { span.End(err) }()

	items, err := s.repo.List(ctx)
	if err != nil {
		return listing.Page[E]{}, s.translate(err, "list")
	}
	if s.moderated && q.Filters["status"] == "" {
		items = withoutDeleted(items)
	}
	page = listing.Apply(items, s.fields, q)
	span.SetAttributes(attribute.Int("total", page.Total))
	return page, nil
}

func (s *Service[E]) Get(ctx context.Context, recordID id.RecordID) (e E, err error) {
	ctx, span := s.start(ctx, "catalog.get", recordID)
	defer func() { span.End(err) }()

	e, err = s.repo.Get(ctx, recordID)
	if err != nil {
		return e, s.translate(err, "load")
	}
	return e, nil
}

// Create stores a new record. Server-owned fields in e are overwritten.
func (s *Service[E]) Create(ctx context.Context, e E) (_ E, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create", attribute.String("kind", s.kind.String()))
	defer func() { span.End(err) }()

	e.Normalize()
	if err = e.Validate(); err != nil {
		return e, err
	}

	now := requestcontext.Now(ctx)
	*e.Base() = models.Record{ID: id.NewRecordID(), CreatedAt: now, UpdatedAt: now}
	if m, ok := any(e).(models.Moderated); ok {
		*m.Mod() = models.Moderation{Status: models.StatusPending}
	}
	if img, ok := any(e).(models.Imaged); ok {
		*img.ImageRef() = models.Image{}
	}

	if err = s.repo.Create(ctx, e); err != nil {
		return e, s.translate(err, "create")
	}
	s.publish(ctx, changefeed.ActionCreated, e)
	return e, nil
}

// Update replaces the editable fields of a record. Identity, timestamps,
// moderation status and image stay as stored.
func (s *Service[E]) Update(ctx context.Context, recordID id.RecordID, e E) (_ E, err error) {
	ctx, span := s.start(ctx, "catalog.update", recordID)
	defer func() { span.End(err) }()

	e.Normalize()
	if err = e.Validate(); err != nil {
		return e, err
	}

	s.locks.Lock(recordID.String())
	defer s.locks.Unlock(recordID.String())

	existing, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return e, s.translate(err, "load")
	}
	*e.Base() = *existing.Base()
	e.Base().UpdatedAt = requestcontext.Now(ctx)
	if m, ok := any(e).(models.Moderated); ok {
		*m.Mod() = *any(existing).(models.Moderated).Mod()
	}
	if img, ok := any(e).(models.Imaged); ok {
		*img.ImageRef() = *any(existing).(models.Imaged).ImageRef()
	}

	if err = s.repo.Update(ctx, e); err != nil {
		return e, s.translate(err, "update")
	}
	s.publish(ctx, changefeed.ActionUpdated, e)
	return e, nil
}

// Delete soft-deletes moderated records and removes all others outright.
func (s *Service[E]) Delete(ctx context.Context, recordID id.RecordID) (err error) {
	ctx, span := s.start(ctx, "catalog.delete", recordID)
	defer func() { span.End(err) }()

	if s.moderated {
		_, err = s.transition(ctx, recordID, changefeed.ActionDeleted, (*models.Moderation).SoftDelete)
		return err
	}
	s.locks.Lock(recordID.String())
	defer s.locks.Unlock(recordID.String())
	return s.remove(ctx, recordID, changefeed.ActionDeleted)
}

func (s *Service[E]) Approve(ctx context.Context, recordID id.RecordID) (_ E, err error) {
	ctx, span := s.start(ctx, "catalog.approve", recordID)
	defer func() { span.End(err) }()
	return s.transition(ctx, recordID, changefeed.ActionApproved, (*models.Moderation).Approve)
}

func (s *Service[E]) Reject(ctx context.Context, recordID id.RecordID) (_ E, err error) {
	ctx, span := s.start(ctx, "catalog.reject", recordID)
	defer func() { span.End(err) }()
	return s.transition(ctx, recordID, changefeed.ActionRejected, (*models.Moderation).Reject)
}

// Recover brings a soft-deleted record back with the status it had.
func (s *Service[E]) Recover(ctx context.Context, recordID id.RecordID) (_ E, err error) {
	ctx, span := s.start(ctx, "catalog.recover", recordID)
	defer func() { span.End(err) }()
	return s.transition(ctx, recordID, changefeed.ActionRecovered, (*models.Moderation).Recover)
}

// Purge permanently deletes a deleted or rejected record.
func (s *Service[E]) Purge(ctx context.Context, recordID id.RecordID) (err error) {
	ctx, span := s.start(ctx, "catalog.purge", recordID)
	defer func() { span.End(err) }()

	if !s.moderated {
		return s.notModerated()
	}
	s.locks.Lock(recordID.String())
	defer s.locks.Unlock(recordID.String())

	e, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return s.translate(err, "load")
	}
	if err = any(e).(models.Moderated).Mod().CanPurge(); err != nil {
		return err
	}
	return s.remove(ctx, recordID, changefeed.ActionPurged)
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SetImage stores body as the record's image, replacing any previous one.
func (s *Service[E]) SetImage(ctx context.Context, recordID id.RecordID, contentType string, body io.Reader, size int64) (_ E, err error) {
	ctx, span := s.start(ctx, "catalog.set_image", recordID)
	defer func() { span.End(err) }()

	var zero E
	if !s.imaged {
		return zero, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s do not take images", s.kind))
	}
	if s.blobs == nil {
		return zero, dErrors.New(dErrors.CodeInternal, "image storage is not configured")
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return zero, dErrors.New(dErrors.CodeValidation, "image must be PNG, JPEG, GIF or WebP")
	}
	if size > validation.MaxImageSize {
		return zero, dErrors.New(dErrors.CodeValidation, "image is too large")
	}

	s.locks.Lock(recordID.String())
	defer s.locks.Unlock(recordID.String())

	e, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return zero, s.translate(err, "load")
	}

	key := fmt.Sprintf("%s/%s/%s%s", s.kind, recordID, id.NewRecordID(), ext)
	if _, err = s.blobs.Put(ctx, key, contentType, body, size); err != nil {
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store image")
	}

	ref := any(e).(models.Imaged).ImageRef()
	previous := ref.ImageKey
	ref.ImageKey = key
	e.Base().UpdatedAt = requestcontext.Now(ctx)
	if err = s.repo.Update(ctx, e); err != nil {
		s.deleteBlob(ctx, key)
		return zero, s.translate(err, "update")
	}
	if previous != "" {
		s.deleteBlob(ctx, previous)
	}
	s.publish(ctx, changefeed.ActionImage, e)
	return e, nil
}

func (s *Service[E]) transition(ctx context.Context, recordID id.RecordID, action changefeed.Action, apply func(*models.Moderation) error) (E, error) {
	var zero E
	if !s.moderated {
		return zero, s.notModerated()
	}
	s.locks.Lock(recordID.String())
	defer s.locks.Unlock(recordID.String())

	e, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return zero, s.translate(err, "load")
	}
	if err := apply(any(e).(models.Moderated).Mod()); err != nil {
		return zero, err
	}
	e.Base().UpdatedAt = requestcontext.Now(ctx)
	if err := s.repo.Update(ctx, e); err != nil {
		return zero, s.translate(err, "update")
	}
	s.publish(ctx, action, e)
	return e, nil
}

func (s *Service[E]) remove(ctx context.Context, recordID id.RecordID, action changefeed.Action) error {
	e, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return s.translate(err, "load")
	}
	if err := s.repo.Delete(ctx, recordID); err != nil {
		return s.translate(err, "delete")
	}
	if img, ok := any(e).(models.Imaged); ok && img.ImageRef().ImageKey != "" {
		s.deleteBlob(ctx, img.ImageRef().ImageKey)
	}
	s.publish(ctx, action, e)
	return nil
}

func (s *Service[E]) deleteBlob(ctx context.Context, key string) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete image",
			"key", key,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service[E]) publish(ctx context.Context, action changefeed.Action, e E) {
	event := changefeed.Event{
		Kind:      s.kind.String(),
		Action:    action,
		RecordID:  e.Base().ID.String(),
		RequestID: requestcontext.RequestID(ctx),
		At:        requestcontext.Now(ctx),
	}
	if actor := requestcontext.UserID(ctx); !actor.IsNil() {
		event.ActorID = actor.String()
	}
	if m, ok := any(e).(models.Moderated); ok {
		event.Status = string(m.Mod().Status)
	}
	s.feed.Publish(ctx, event)
}

func (s *Service[E]) start(ctx context.Context, name string, recordID id.RecordID) (context.Context, tracer.Span) {
	return s.tracer.Start(ctx, name,
		attribute.String("kind", s.kind.String()),
		attribute.String("record_id", recordID.String()),
	)
}

func (s *Service[E]) notModerated() error {
	return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s are not moderated", s.kind))
}

func (s *Service[E]) translate(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s record not found", s.kind))
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("%s record already exists", s.kind))
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to %s %s record", op, s.kind))
	}
}

func withoutDeleted[E models.Entity](items []E) []E {
	out := make([]E, 0, len(items))
	for _, e := range items {
		if any(e).(models.Moderated).Mod().Status != models.StatusDeleted {
			out = append(out, e)
		}
	}
	return out
}
