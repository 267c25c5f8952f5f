package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TokenIssuer,RevocationList

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"unearthify/internal/auth/device"
	"unearthify/internal/auth/models"
	jwttoken "unearthify/internal/jwt_token"
	"unearthify/internal/platform/metrics"
	"unearthify/internal/platform/privacy"
	id "unearthify/pkg/domain"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/platform/sentinel"
	"unearthify/pkg/requestcontext"
	"unearthify/pkg/secrets"
)

// UserStore defines the persistence interface for accounts.
// Error Contract: Find methods return sentinel.ErrNotFound for missing users;
// Create returns sentinel.ErrAlreadyUsed for a taken email.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, p jwttoken.Principal) (string, string, time.Time, error)
}

// RevocationList remembers signed-out tokens until they expire.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type Service struct {
	users   UserStore
	tokens  TokenIssuer
	trl     RevocationList
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(users UserStore, tokens TokenIssuer, trl RevocationList, opts ...Option) *Service {
	svc := &Service{
		users:  users,
		tokens: tokens,
		trl:    trl,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

// SignIn checks the credentials and issues an access token.
func (s *Service) SignIn(ctx context.Context, req *models.SignInRequest, userAgent string) (*models.AuthResponse, error) {
	label := device.Label(userAgent)

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			secrets.Burn(req.Password)
			s.signInFailure(ctx, "unknown_email", req.Email, label)
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.signInFailure(ctx, "bad_password", req.Email, label)
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.IncSignIn()
	s.logger.InfoContext(ctx, "user signed in",
		"user_id", user.ID.String(),
		"role", string(user.Role),
		"device", label,
		"remote_net", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
	return resp, nil
}

// SignUp registers an editor account and signs it in.
func (s *Service) SignUp(ctx context.Context, req *models.SignUpRequest) (*models.AuthResponse, error) {
	user, err := s.createUser(ctx, req.Email, req.Password, req.FullName, req.Phone, models.RoleEditor)
	if err != nil {
		return nil, err
	}
	s.metrics.IncSignUp()
	s.logger.InfoContext(ctx, "user signed up",
		"user_id", user.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.issue(ctx, user)
}

// SignOut revokes the token that authenticated the request.
func (s *Service) SignOut(ctx context.Context) error {
	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "no token to revoke")
	}
	ttl := requestcontext.TokenExpiry(ctx).Sub(requestcontext.Now(ctx))
	if err := s.trl.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.metrics.IncSignOut()
	s.logger.InfoContext(ctx, "user signed out",
		"user_id", requestcontext.UserID(ctx).String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.UserResponse, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not signed in")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	resp := models.NewUserResponse(user)
	return &resp, nil
}

// EnsureAdmin creates an admin account when no account exists yet. It
// reports whether one was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	if n > 0 {
		return false, nil
	}
	user, err := s.createUser(ctx, email, password, fullName, "", models.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "admin account created", "user_id", user.ID.String(), "email", user.Email)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, email, password, fullName, phone string, role models.Role) (*models.User, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		FullName:     fullName,
		Phone:        phone,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	token, _, expiresAt, err := s.tokens.GenerateAccessToken(ctx, jwttoken.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &models.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      models.NewUserResponse(user),
	}, nil
}

func (s *Service) signInFailure(ctx context.Context, reason, email, label string) {
	s.metrics.IncSignInFailure()
	s.logger.WarnContext(ctx, "sign-in failed",
		"reason", reason,
		"email", email,
		"device", label,
		"remote_net", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
}
