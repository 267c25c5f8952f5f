package handler

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unearthify/internal/auth/models"
	id "unearthify/pkg/domain"
	"unearthify/pkg/platform/httputil"
	"unearthify/pkg/requestcontext"
)

// Service defines the interface for authentication operations.
type Service interface {
	SignIn(ctx context.Context, req *models.SignInRequest, userAgent string) (*models.AuthResponse, error)
	SignUp(ctx context.Context, req *models.SignUpRequest) (*models.AuthResponse, error)
	SignOut(ctx context.Context) error
	Me(ctx context.Context, userID id.UserID) (*models.UserResponse, error)
}

// Handler serves the sign-in, sign-up and sign-out endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

// New creates a new auth Handler with the given service and logger.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register registers the public auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/signin", h.HandleSignIn)
	r.Post("/auth/signup", h.HandleSignUp)
}

// RegisterProtected registers routes that need an authenticated caller. The
// parent router applies RequireAuth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/signout", h.HandleSignOut)
	r.Get("/auth/me", h.HandleMe)
}

// HandleSignIn implements POST /auth/signin.
//
// Input: { "email": "curator@example.com", "password": "..." }
// Output: { "token": "...", "expires_at": "...", "user": {...} }
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SignInRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.auth.SignIn(ctx, req, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "sign-in rejected",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleSignUp implements POST /auth/signup.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SignUpRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.auth.SignUp(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "sign-up rejected",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, res)
}

// HandleSignOut revokes the bearer token the request was made with.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.SignOut(ctx); err != nil {
		h.logger.ErrorContext(ctx, "sign-out failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.auth.Me(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load current user",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
