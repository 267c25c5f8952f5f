package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"unearthify/pkg/requestcontext"
)

const testUserID = "550e8400-e29b-41d4-a716-446655440001"

type MockJWTValidator struct {
	mock.Mock
}

func (m *MockJWTValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTokenRevocationChecker struct {
	mock.Mock
}

func (m *MockTokenRevocationChecker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

type recordingHandler struct {
	called bool
	ctx    context.Context
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	validator *MockJWTValidator
	revoker   *MockTokenRevocationChecker
	next      *recordingHandler
	logger    *slog.Logger
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.validator = new(MockJWTValidator)
	s.revoker = new(MockTokenRevocationChecker)
	s.next = &recordingHandler{}
	s.logger = slog.New(slog.DiscardHandler)
}

func (s *AuthMiddlewareSuite) TearDownTest() {
	s.validator.AssertExpectations(s.T())
	s.revoker.AssertExpectations(s.T())
}

func (s *AuthMiddlewareSuite) serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/artists", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareSuite) TestValidTokenPopulatesContext() {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.validator.On("ValidateToken", "good").Return(&JWTClaims{
		UserID: testUserID, Role: "admin", JTI: "jti-1", ExpiresAt: exp,
	}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "jti-1").Return(false, nil)

	w := s.serve(RequireAuth(s.validator, s.revoker, s.logger)(s.next), "Bearer good")

	s.Equal(http.StatusOK, w.Code)
	s.Require().True(s.next.called)
	s.Equal(testUserID, requestcontext.UserID(s.next.ctx).String())
	s.Equal("admin", requestcontext.Role(s.next.ctx))
	s.Equal("jti-1", requestcontext.TokenID(s.next.ctx))
	s.Equal(exp, requestcontext.TokenExpiry(s.next.ctx))
}

func (s *AuthMiddlewareSuite) TestMissingHeader() {
	for _, header := range []string{"", "Basic abc", "Bearer "} {
		w := s.serve(RequireAuth(s.validator, nil, s.logger)(s.next), header)
		s.Equal(http.StatusUnauthorized, w.Code, header)
		s.JSONEq(`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`, w.Body.String())
	}
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "stale").Return(nil, errors.New("token is expired"))

	w := s.serve(RequireAuth(s.validator, nil, s.logger)(s.next), "Bearer stale")

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestRevokedToken() {
	s.validator.On("ValidateToken", "good").Return(&JWTClaims{UserID: testUserID, JTI: "jti-1"}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "jti-1").Return(true, nil)

	w := s.serve(RequireAuth(s.validator, s.revoker, s.logger)(s.next), "Bearer good")

	s.Equal(http.StatusUnauthorized, w.Code)
	s.JSONEq(`{"error":"unauthorized","error_description":"Token has been revoked"}`, w.Body.String())
}

func (s *AuthMiddlewareSuite) TestMissingJTIWithRevocationEnabled() {
	s.validator.On("ValidateToken", "good").Return(&JWTClaims{UserID: testUserID}, nil)

	w := s.serve(RequireAuth(s.validator, s.revoker, s.logger)(s.next), "Bearer good")

	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthMiddlewareSuite) TestRevocationStoreFailure() {
	s.validator.On("ValidateToken", "good").Return(&JWTClaims{UserID: testUserID, JTI: "jti-1"}, nil)
	s.revoker.On("IsTokenRevoked", mock.Anything, "jti-1").Return(false, errors.New("redis down"))

	w := s.serve(RequireAuth(s.validator, s.revoker, s.logger)(s.next), "Bearer good")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.JSONEq(`{"error":"internal_error","error_description":"Failed to validate token"}`, w.Body.String())
}

func (s *AuthMiddlewareSuite) TestMalformedUserID() {
	s.validator.On("ValidateToken", "good").Return(&JWTClaims{UserID: "nope", JTI: "jti-1"}, nil)

	w := s.serve(RequireAuth(s.validator, nil, s.logger)(s.next), "Bearer good")

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestRequireRole() {
	guarded := RequireRole(s.logger, "admin")(s.next)

	req := httptest.NewRequest(http.MethodDelete, "/api/artists/x/permanent", nil)
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, req.WithContext(requestcontext.WithRole(req.Context(), "editor")))
	s.Equal(http.StatusForbidden, w.Code)
	s.False(s.next.called)

	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req.WithContext(requestcontext.WithRole(req.Context(), "admin")))
	s.Equal(http.StatusOK, w.Code)
	s.True(s.next.called)
}
