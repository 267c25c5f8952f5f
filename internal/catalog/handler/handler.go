package handler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "unearthify/internal/auth/models"
	"unearthify/internal/catalog/models"
	"unearthify/internal/listing"
	id "unearthify/pkg/domain"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/platform/httputil"
	"unearthify/pkg/platform/middleware/auth"
	"unearthify/pkg/platform/validation"
	"unearthify/pkg/requestcontext"
)

// Service is the catalog service for one kind.
type Service[E models.Entity] interface {
	Kind() models.Kind
	Moderated() bool
	Imaged() bool
	List(ctx context.Context, q listing.Query) (listing.Page[E], error)
	Get(ctx context.Context, recordID id.RecordID) (E, error)
	Create(ctx context.Context, e E) (E, error)
	Update(ctx context.Context, recordID id.RecordID, e E) (E, error)
	Delete(ctx context.Context, recordID id.RecordID) error
	Approve(ctx context.Context, recordID id.RecordID) (E, error)
	Reject(ctx context.Context, recordID id.RecordID) (E, error)
	Recover(ctx context.Context, recordID id.RecordID) (E, error)
	Purge(ctx context.Context, recordID id.RecordID) error
	SetImage(ctx context.Context, recordID id.RecordID, contentType string, body io.Reader, size int64) (E, error)
}

// Registrar mounts routes on a router. Handlers of every kind satisfy it.
type Registrar interface {
	Register(r chi.Router)
}

// defaultQuery lists newest records first.
var defaultQuery = listing.Query{
	SortKey:   "created_at",
	SortOrder: listing.Desc,
	Page:      1,
	PageSize:  listing.DefaultPageSize,
}

// Handler serves /{kind} for one record kind.
type Handler[E models.Entity] struct {
	svc    Service[E]
	newFn  func() E
	logger *slog.Logger
}

func New[E models.Entity](svc Service[E], newFn func() E, logger *slog.Logger) *Handler[E] {
	return &Handler[E]{svc: svc, newFn: newFn, logger: logger}
}

// Register mounts the kind's routes. Moderation routes only exist for
// moderated kinds, and permanent deletion is restricted to admins.
func (h *Handler[E]) Register(r chi.Router) {
	r.Route("/"+h.svc.Kind().String(), func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		if h.svc.Imaged() {
			r.Post("/{id}/image", h.HandleSetImage)
		}
		if h.svc.Moderated() {
			r.Post("/{id}/approve", h.moderate(h.svc.Approve, "approve"))
			r.Post("/{id}/reject", h.moderate(h.svc.Reject, "reject"))
			r.Post("/{id}/recover", h.moderate(h.svc.Recover, "recover"))
			r.With(auth.RequireRole(h.logger, string(authmodels.RoleAdmin))).Delete("/{id}/permanent", h.HandlePurge)
		}
	})
}

// HandleList implements GET /{kind}?search=&sort=&order=&page=&page_size=&filter.<field>=
func (h *Handler[E]) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := listing.ParseQuery(r.URL.Query(), defaultQuery)

	page, err := h.svc.List(ctx, q)
	if err != nil {
		h.fail(ctx, "failed to list records", err)
		httputil.WriteError(w, err)
		return
	}
	if page.Items == nil {
		page.Items = []E{}
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler[E]) HandleGet(w http.ResponseWriter, r *http.Request) {
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Get(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler[E]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.svc.Create(ctx, e)
	if err != nil {
		h.fail(ctx, "failed to create record", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler[E]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.Update(ctx, recordID, e)
	if err != nil {
		h.fail(ctx, "failed to update record", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[E]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(ctx, recordID); err != nil {
		h.fail(ctx, "failed to delete record", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler[E]) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Purge(ctx, recordID); err != nil {
		h.fail(ctx, "failed to purge record", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetImage implements POST /{kind}/{id}/image with a multipart "image"
// field. The content type is sniffed from the payload, not taken from the
// client.
func (h *Handler[E]) HandleSetImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, ok := h.recordID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxImageSize+(1<<20))
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "image is too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart field \"image\" is required"))
		return
	}
	defer file.Close()

	body := bufio.NewReaderSize(file, 512)
	head, err := body.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable image"))
		return
	}
	contentType := http.DetectContentType(head)

	updated, err := h.svc.SetImage(ctx, recordID, contentType, body, header.Size)
	if err != nil {
		h.fail(ctx, "failed to store image", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[E]) moderate(op func(context.Context, id.RecordID) (E, error), name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		recordID, ok := h.recordID(w, r)
		if !ok {
			return
		}
		e, err := op(ctx, recordID)
		if err != nil {
			h.fail(ctx, "failed to "+name+" record", err)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, e)
	}
}

func (h *Handler[E]) recordID(w http.ResponseWriter, r *http.Request) (id.RecordID, bool) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RecordID{}, false
	}
	return recordID, true
}

func (h *Handler[E]) decode(w http.ResponseWriter, r *http.Request) (E, bool) {
	e := h.newFn()
	if !httputil.Decode(w, r, h.logger, e) {
		var zero E
		return zero, false
	}
	return e, true
}

// fail logs server-side failures. Client errors are returned without noise.
func (h *Handler[E]) fail(ctx context.Context, msg string, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && httputil.DomainCodeToHTTPStatus(domainErr.Code) < http.StatusInternalServerError {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"kind", h.svc.Kind(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
