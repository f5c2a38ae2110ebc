package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// --- Mocks ---

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, confirmPassword string) (string, error) {
	args := m.Called(ctx, email, password, confirmPassword)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthService) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) GetSession(ctx context.Context, userID string) (*types.AuthUser, error) {
	args := m.Called(ctx, userID)
	var user *types.AuthUser
	if args.Get(0) != nil {
		user = args.Get(0).(*types.AuthUser)
	}
	return user, args.Error(1)
}

func (m *MockAuthService) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var roles []string
	if args.Get(0) != nil {
		roles = args.Get(0).([]string)
	}
	return roles, args.Error(1)
}

func (m *MockAuthService) HasRole(ctx context.Context, userID, role string) (bool, error) {
	args := m.Called(ctx, userID, role)
	return args.Bool(0), args.Error(1)
}

func newTestHandler(svc AuthService) *AuthHandler {
	return NewAuthHandler(svc, slog.New(slog.DiscardHandler))
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// --- Tests ---

func TestAuthHandler_Register(t *testing.T) {
	t.Run("validation failures answer 422", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		mockSvc.On("Register", mock.Anything, "a@b.c", "123", "123").
			Return("", fmt.Errorf("%w: password must be at least 6 characters long", api.ErrValidation)).Once()

		rec := postJSON(t, handler.Register, "/api/v1/auth/register",
			RegisterRequest{Email: "a@b.c", Password: "123", ConfirmPassword: "123"})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("success answers 201", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		mockSvc.On("Register", mock.Anything, "a@b.c", "secret1", "secret1").
			Return("new-id", nil).Once()

		rec := postJSON(t, handler.Register, "/api/v1/auth/register",
			RegisterRequest{Email: "a@b.c", Password: "secret1", ConfirmPassword: "secret1"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("empty fields answer 400 before the service runs", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		rec := postJSON(t, handler.Login, "/api/v1/auth/login", LoginRequest{Email: "", Password: ""})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockSvc.AssertNotCalled(t, "Login")
	})

	t.Run("bad credentials answer 401", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		mockSvc.On("Login", mock.Anything, "a@b.c", "wrong").
			Return("", "", fmt.Errorf("%w: invalid credentials", api.ErrUnauthenticated)).Once()

		rec := postJSON(t, handler.Login, "/api/v1/auth/login", LoginRequest{Email: "a@b.c", Password: "wrong"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success returns the token pair", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		mockSvc.On("Login", mock.Anything, "a@b.c", "secret1").
			Return("access-token", "refresh-token", nil).Once()

		rec := postJSON(t, handler.Login, "/api/v1/auth/login", LoginRequest{Email: "a@b.c", Password: "secret1"})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "access-token", resp.AccessToken)
		assert.Equal(t, "refresh-token", resp.RefreshToken)
	})
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	t.Run("no identity answers 401 with a login redirect", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout-all", nil)
		rec := httptest.NewRecorder()
		handler.LogoutAll(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "/login", body["redirect"])
		mockSvc.AssertNotCalled(t, "LogoutAll")
	})

	t.Run("revokes every session of the authenticated user", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		mockSvc.On("LogoutAll", mock.Anything, "u1").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout-all", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, "u1"))
		rec := httptest.NewRecorder()
		handler.LogoutAll(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestAuthHandler_GetSession(t *testing.T) {
	t.Run("no identity answers 401 with a login redirect", func(t *testing.T) {
		handler := newTestHandler(new(MockAuthService))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
		rec := httptest.NewRecorder()
		handler.GetSession(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "/login", body["redirect"])
	})

	t.Run("returns identity and roles", func(t *testing.T) {
		mockSvc := new(MockAuthService)
		handler := newTestHandler(mockSvc)

		mockSvc.On("GetSession", mock.Anything, "u1").
			Return(&types.AuthUser{ID: "u1", Email: "a@b.c"}, nil).Once()
		mockSvc.On("GetUserRoles", mock.Anything, "u1").
			Return([]string{"admin"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, "u1"))
		rec := httptest.NewRecorder()
		handler.GetSession(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "u1", resp.ID)
		assert.Equal(t, []string{"admin"}, resp.Roles)
	})
}
