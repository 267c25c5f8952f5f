package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"unearthify/internal/auth/handler/mocks"
	"unearthify/internal/auth/models"
	id "unearthify/pkg/domain"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/requestcontext"
)

type AuthHandlerSuite struct {
	suite.Suite
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) newHandler(t *testing.T, userID id.UserID) (*mocks.MockService, *chi.Mux) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := requestcontext.WithUserID(req.Context(), userID)
				ctx = requestcontext.WithToken(ctx, "jti-1", time.Now().Add(time.Hour))
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		h.RegisterProtected(r)
	})
	return mockService, r
}

func (s *AuthHandlerSuite) do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "adminctl-test")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func (s *AuthHandlerSuite) TestHandleSignIn() {
	s.T().Run("200 - returns token and user", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		expectedReq := &models.SignInRequest{Email: "ada@unearthify.test", Password: "Heritage#24"}
		mockService.EXPECT().SignIn(gomock.Any(), expectedReq, "adminctl-test").Return(&models.AuthResponse{
			Token: "jwt",
			User:  models.UserResponse{ID: "u-1", Email: "ada@unearthify.test", Role: models.RoleAdmin},
		}, nil)

		rr := s.do(router, http.MethodPost, "/auth/signin", `{"email":"  ADA@unearthify.test ","password":"Heritage#24"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		var got models.AuthResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "jwt", got.Token)
		assert.Equal(t, models.RoleAdmin, got.User.Role)
	})

	s.T().Run("400 - invalid json body", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		mockService.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := s.do(router, http.MethodPost, "/auth/signin", `{"email": "`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "bad_request", decodeError(t, rr)["error"])
	})

	s.T().Run("400 - missing password", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		mockService.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := s.do(router, http.MethodPost, "/auth/signin", `{"email":"ada@unearthify.test"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeError(t, rr)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "password is required", body["error_description"])
	})

	s.T().Run("401 - bad credentials", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		mockService.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))

		rr := s.do(router, http.MethodPost, "/auth/signin", `{"email":"ada@unearthify.test","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "invalid email or password", decodeError(t, rr)["error_description"])
	})
}

func (s *AuthHandlerSuite) TestHandleSignUp() {
	s.T().Run("201 - registers", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		mockService.EXPECT().SignUp(gomock.Any(), &models.SignUpRequest{
			FullName: "Grace Editor",
			Email:    "grace@unearthify.test",
			Password: "Heritage#24",
		}).Return(&models.AuthResponse{Token: "jwt"}, nil)

		rr := s.do(router, http.MethodPost, "/auth/signup",
			`{"full_name":"Grace Editor","email":"grace@unearthify.test","password":"Heritage#24"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	s.T().Run("400 - weak password never reaches the service", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		mockService.EXPECT().SignUp(gomock.Any(), gomock.Any()).Times(0)

		rr := s.do(router, http.MethodPost, "/auth/signup",
			`{"full_name":"Grace Editor","email":"grace@unearthify.test","password":"password1"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr)["error_description"], "password must be")
	})

	s.T().Run("409 - duplicate email", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.UserID{})
		mockService.EXPECT().SignUp(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email is already registered"))

		rr := s.do(router, http.MethodPost, "/auth/signup",
			`{"full_name":"Grace Editor","email":"grace@unearthify.test","password":"Heritage#24"}`)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr)["error"])
	})
}

func (s *AuthHandlerSuite) TestHandleSignOut() {
	s.T().Run("204 - revokes the token from context", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.NewUserID())
		mockService.EXPECT().SignOut(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
			assert.Equal(t, "jti-1", requestcontext.TokenID(ctx))
			return nil
		})

		rr := s.do(router, http.MethodPost, "/auth/signout", "")

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	s.T().Run("500 - revocation store failure", func(t *testing.T) {
		mockService, router := s.newHandler(t, id.NewUserID())
		mockService.EXPECT().SignOut(gomock.Any()).Return(dErrors.New(dErrors.CodeInternal, "failed to revoke token"))

		rr := s.do(router, http.MethodPost, "/auth/signout", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func (s *AuthHandlerSuite) TestHandleMe() {
	userID := id.NewUserID()

	s.T().Run("200 - returns the profile for the caller", func(t *testing.T) {
		mockService, router := s.newHandler(t, userID)
		mockService.EXPECT().Me(gomock.Any(), userID).Return(&models.UserResponse{
			ID: userID.String(), Email: "ada@unearthify.test", Role: models.RoleEditor,
		}, nil)

		rr := s.do(router, http.MethodGet, "/auth/me", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var got models.UserResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, userID.String(), got.ID)
	})

	s.T().Run("404 - account removed", func(t *testing.T) {
		mockService, router := s.newHandler(t, userID)
		mockService.EXPECT().Me(gomock.Any(), userID).Return(nil, dErrors.New(dErrors.CodeNotFound, "user not found"))

		rr := s.do(router, http.MethodGet, "/auth/me", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
