package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"unearthify/internal/platform/blob"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/platform/httputil"
	"unearthify/pkg/requestcontext"
)

// Images serves uploaded record images by key.
type Images struct {
	blobs  blob.Store
	logger *slog.Logger
}

func NewImages(blobs blob.Store, logger *slog.Logger) *Images {
	return &Images{blobs: blobs, logger: logger}
}

func (h *Images) Register(r chi.Router) {
	r.Get("/images/*", h.HandleGet)
}

// HandleGet implements GET /images/{kind}/{id}/{name}.
func (h *Images) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "*")
	if key == "" || strings.Contains(key, "..") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "image not found"))
		return
	}

	body, obj, err := h.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "image not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to read image",
			"key", key,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	// Keys are never reused, so the object can be cached for good.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
