package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-couple-connect/app/observability/metrics"
	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/authstate"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// --- Mocks ---

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, email)
	var user *types.UserAuth
	if args.Get(0) != nil {
		user = args.Get(0).(*types.UserAuth)
	}
	return user, args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error) {
	args := m.Called(ctx, userID)
	var user *types.UserAuth
	if args.Get(0) != nil {
		user = args.Get(0).(*types.UserAuth)
	}
	return user, args.Error(1)
}

func (m *MockAuthRepo) Register(ctx context.Context, email, hashedPassword string) (string, error) {
	args := m.Called(ctx, email, hashedPassword)
	return args.String(0), args.Error(1)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthRepo) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var roles []string
	if args.Get(0) != nil {
		roles = args.Get(0).([]string)
	}
	return roles, args.Error(1)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		SecretKey:       "test-secret-key",
		Issuer:          "couple-connect-test",
		Audience:        "couple-connect-api",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
	return cfg
}

func newTestService(repo *MockAuthRepo, events SessionEventPublisher) *AuthServiceImpl {
	metrics.InitAppMetrics()
	return NewAuthService(repo, testConfig(), slog.New(slog.DiscardHandler), events)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// --- Tests ---

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing fields", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		_, err := svc.Register(ctx, "a@b.c", "", "")
		require.ErrorIs(t, err, api.ErrValidation)
		mockRepo.AssertNotCalled(t, "Register")
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		svc := newTestService(new(MockAuthRepo), nil)
		_, err := svc.Register(ctx, "a@b.c", "12345", "12345")
		require.ErrorIs(t, err, api.ErrValidation)
	})

	t.Run("rejects mismatched confirmation", func(t *testing.T) {
		svc := newTestService(new(MockAuthRepo), nil)
		_, err := svc.Register(ctx, "a@b.c", "secret1", "secret2")
		require.ErrorIs(t, err, api.ErrValidation)
	})

	t.Run("stores a bcrypt hash, never the password", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		mockRepo.On("Register", ctx, "a@b.c", mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")) == nil
		})).Return("new-user-id", nil).Once()

		userID, err := svc.Register(ctx, "a@b.c", "secret1", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "new-user-id", userID)
		mockRepo.AssertExpectations(t)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email maps to unauthenticated", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		mockRepo.On("GetUserByEmail", ctx, "ghost@b.c").Return(nil, api.ErrNotFound).Once()

		_, _, err := svc.Login(ctx, "ghost@b.c", "whatever")
		require.ErrorIs(t, err, api.ErrUnauthenticated)
	})

	t.Run("wrong password maps to unauthenticated", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		user := &types.UserAuth{ID: "u1", Email: "a@b.c", Password: hashOf(t, "right")}
		mockRepo.On("GetUserByEmail", ctx, "a@b.c").Return(user, nil).Once()

		_, _, err := svc.Login(ctx, "a@b.c", "wrong")
		require.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "StoreRefreshToken")
	})

	t.Run("valid credentials issue a signed access token", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		user := &types.UserAuth{ID: "u1", Email: "a@b.c", Password: hashOf(t, "secret1")}
		mockRepo.On("GetUserByEmail", ctx, "a@b.c").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.Anything, mock.Anything).Return(nil).Once()

		accessToken, refreshToken, err := svc.Login(ctx, "a@b.c", "secret1")
		require.NoError(t, err)
		require.NotEmpty(t, refreshToken)

		claims := &types.Claims{}
		parsed, err := jwt.ParseWithClaims(accessToken, claims, func(*jwt.Token) (interface{}, error) {
			return []byte("test-secret-key"), nil
		})
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
		assert.Equal(t, "u1", claims.UserID)
		assert.Equal(t, "a@b.c", claims.Email)
		assert.Equal(t, "couple-connect-test", claims.Issuer)
	})

	t.Run("sign-in flows through the auth state store", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		bus := authstate.NewBus()
		svc := newTestService(mockRepo, bus)

		store := authstate.NewStore(bus, nil, nil, slog.New(slog.DiscardHandler))
		require.NoError(t, store.Initialize(ctx))
		require.False(t, store.IsAuthenticated())

		user := &types.UserAuth{ID: "u1", Email: "a@b.c", Password: hashOf(t, "secret1")}
		mockRepo.On("GetUserByEmail", ctx, "a@b.c").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.Anything, mock.Anything).Return(nil).Once()

		_, _, err := svc.Login(ctx, "a@b.c", "secret1")
		require.NoError(t, err)

		assert.True(t, store.IsAuthenticated())
		require.NotNil(t, store.Current())
		assert.Equal(t, "u1", store.Current().ID)

		mockRepo.On("InvalidateRefreshToken", ctx, "rt").Return(nil).Once()
		require.NoError(t, svc.Logout(ctx, "rt"))
		assert.False(t, store.IsAuthenticated())
	})
}

func TestAuthService_LogoutAll(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes every token and signs the session out", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		bus := authstate.NewBus()
		svc := newTestService(mockRepo, bus)

		store := authstate.NewStore(bus, nil, nil, slog.New(slog.DiscardHandler))
		require.NoError(t, store.Initialize(ctx))

		user := &types.UserAuth{ID: "u1", Email: "a@b.c", Password: hashOf(t, "secret1")}
		mockRepo.On("GetUserByEmail", ctx, "a@b.c").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.Anything, mock.Anything).Return(nil).Once()
		_, _, err := svc.Login(ctx, "a@b.c", "secret1")
		require.NoError(t, err)
		require.True(t, store.IsAuthenticated())

		mockRepo.On("InvalidateAllUserRefreshTokens", ctx, "u1").Return(nil).Once()
		require.NoError(t, svc.LogoutAll(ctx, "u1"))
		assert.False(t, store.IsAuthenticated())
		mockRepo.AssertExpectations(t)
	})

	t.Run("revocation failure keeps the session", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		bus := authstate.NewBus()
		svc := newTestService(mockRepo, bus)

		store := authstate.NewStore(bus, nil, nil, slog.New(slog.DiscardHandler))
		require.NoError(t, store.Initialize(ctx))

		user := &types.UserAuth{ID: "u1", Email: "a@b.c", Password: hashOf(t, "secret1")}
		mockRepo.On("GetUserByEmail", ctx, "a@b.c").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.Anything, mock.Anything).Return(nil).Once()
		_, _, err := svc.Login(ctx, "a@b.c", "secret1")
		require.NoError(t, err)

		mockRepo.On("InvalidateAllUserRefreshTokens", ctx, "u1").Return(assert.AnError).Once()
		require.Error(t, svc.LogoutAll(ctx, "u1"))
		assert.True(t, store.IsAuthenticated())
	})
}

func TestAuthService_RefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates both tokens", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		user := &types.UserAuth{ID: "u1", Email: "a@b.c"}
		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "old-token").Return("u1", nil).Once()
		mockRepo.On("GetUserByID", ctx, "u1").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.Anything, mock.Anything).Return(nil).Once()
		mockRepo.On("InvalidateRefreshToken", ctx, "old-token").Return(nil).Once()

		access, refresh, err := svc.RefreshSession(ctx, "old-token")
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEqual(t, "old-token", refresh)
		mockRepo.AssertExpectations(t)
	})

	t.Run("failure to revoke the old token is tolerated", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		user := &types.UserAuth{ID: "u1", Email: "a@b.c"}
		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "old-token").Return("u1", nil).Once()
		mockRepo.On("GetUserByID", ctx, "u1").Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, "u1", mock.Anything, mock.Anything).Return(nil).Once()
		mockRepo.On("InvalidateRefreshToken", ctx, "old-token").Return(assert.AnError).Once()

		_, _, err := svc.RefreshSession(ctx, "old-token")
		assert.NoError(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "stale").Return("", api.ErrUnauthenticated).Once()

		_, _, err := svc.RefreshSession(ctx, "stale")
		require.ErrorIs(t, err, api.ErrUnauthenticated)
	})
}

func TestAuthService_HasRole(t *testing.T) {
	ctx := context.Background()

	t.Run("true when the role is assigned", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		mockRepo.On("GetUserRoles", ctx, "u1").Return([]string{"admin"}, nil).Once()
		ok, err := svc.HasRole(ctx, "u1", "admin")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("false for users without roles", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		svc := newTestService(mockRepo, nil)

		mockRepo.On("GetUserRoles", ctx, "u2").Return(nil, nil).Once()
		ok, err := svc.HasRole(ctx, "u2", "admin")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
