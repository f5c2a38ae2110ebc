package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

type stubRoleChecker struct {
	roles map[string][]string
	err   error
}

func (s *stubRoleChecker) HasRole(_ context.Context, userID, role string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, r := range s.roles[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey: "test-secret-key",
		Issuer:    "couple-connect-test",
		Audience:  "couple-connect-api",
	}
}

func signToken(t *testing.T, cfg config.JWTConfig, userID, email string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := types.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
	require.NoError(t, err)
	return signed
}

func guardBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	cfg := testJWTConfig()
	middleware := Authenticate(logger, cfg)

	protected := func(called *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("missing header answers 401 with a login redirect", func(t *testing.T) {
		called := false
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		rec := httptest.NewRecorder()

		middleware(protected(&called)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/login", guardBody(t, rec)["redirect"])
		assert.False(t, called, "handler must never run on a guard failure")
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		called := false
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		middleware(protected(&called)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		called := false
		token := signToken(t, cfg, "u1", "a@b.c", -time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware(protected(&called)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/login", guardBody(t, rec)["redirect"])
		assert.False(t, called)
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		called := false
		otherCfg := cfg
		otherCfg.Issuer = "someone-else"
		token := signToken(t, otherCfg, "u1", "a@b.c", time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware(protected(&called)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})

	t.Run("valid token passes claims into the context", func(t *testing.T) {
		var gotUserID, gotEmail string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, _ = GetUserIDFromContext(r.Context())
			gotEmail, _ = GetUserEmailFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		token := signToken(t, cfg, "u1", "a@b.c", time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		middleware(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", gotUserID)
		assert.Equal(t, "a@b.c", gotEmail)
	})
}

func TestRequireRole(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	withUser := func(userID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		ctx := context.WithValue(req.Context(), UserIDKey, userID)
		return req.WithContext(ctx)
	}

	t.Run("missing role answers 403 with a dashboard redirect", func(t *testing.T) {
		called := false
		checker := &stubRoleChecker{roles: map[string][]string{}}
		guard := RequireRole(logger, checker, "admin")
		handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withUser("u1"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "/dashboard", guardBody(t, rec)["redirect"])
		assert.False(t, called, "handler must never run on a guard failure")
	})

	t.Run("assigned role passes through", func(t *testing.T) {
		called := false
		checker := &stubRoleChecker{roles: map[string][]string{"u1": {"admin"}}}
		guard := RequireRole(logger, checker, "admin")
		handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withUser("u1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, called)
	})

	t.Run("no identity in context answers 401", func(t *testing.T) {
		checker := &stubRoleChecker{}
		guard := RequireRole(logger, checker, "admin")
		handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/login", guardBody(t, rec)["redirect"])
	})

	t.Run("checker failure answers 500 without a redirect", func(t *testing.T) {
		checker := &stubRoleChecker{err: assert.AnError}
		guard := RequireRole(logger, checker, "admin")
		handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withUser("u1"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		_, hasRedirect := guardBody(t, rec)["redirect"]
		assert.False(t, hasRedirect)
	})
}
