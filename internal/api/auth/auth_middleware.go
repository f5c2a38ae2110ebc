package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Define typed context keys
type contextKey string

const UserIDKey contextKey = "userID"
const UserEmailKey contextKey = "userEmail"

// Redirect targets sent alongside guard failures. The client router
// navigates there instead of rendering the blocked page.
const (
	LoginRedirect     = "/login"
	DashboardRedirect = "/dashboard"
)

// RoleChecker answers role-membership questions for the role guard.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// Authenticate is middleware to validate JWT access tokens. Protected
// routes behind it never see an unauthenticated request: the guard
// answers 401 with a /login redirect before the handler runs.
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	secretKey := []byte(jwtCfg.SecretKey)
	if len(secretKey) == 0 {
		logger.Error("FATAL: JWT Secret Key is not configured!")
		panic("JWT Secret Key cannot be empty")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.WarnContext(ctx, "Missing Authorization header")
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authorization header required", LoginRedirect)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				l.WarnContext(ctx, "Invalid Authorization header format")
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}", LoginRedirect)
				return
			}
			tokenString := headerParts[1]

			claims := &types.Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secretKey, nil
			})

			if err != nil {
				l.WarnContext(ctx, "Token parsing/validation failed", slog.Any("error", err))
				errMsg := "Invalid or expired token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					errMsg = "Token has expired"
				} else if errors.Is(err, jwt.ErrTokenMalformed) {
					errMsg = "Malformed token"
				} else if errors.Is(err, jwt.ErrSignatureInvalid) {
					errMsg = "Invalid token signature"
				}
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, errMsg, LoginRedirect)
				return
			}

			if !token.Valid {
				l.WarnContext(ctx, "Token marked as invalid")
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Invalid token", LoginRedirect)
				return
			}

			if jwtCfg.Issuer != "" && claims.Issuer != jwtCfg.Issuer {
				l.WarnContext(ctx, "Token issuer mismatch", slog.String("expected", jwtCfg.Issuer), slog.String("actual", claims.Issuer))
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Invalid token issuer", LoginRedirect)
				return
			}

			if jwtCfg.Audience != "" && !verifyAudience(claims.Audience, jwtCfg.Audience) {
				l.WarnContext(ctx, "Token audience mismatch", slog.String("expected", jwtCfg.Audience))
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Invalid token audience", LoginRedirect)
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a route behind a role assignment. Runs AFTER the
// Authenticate middleware. The role set is queried per request; a
// failed check answers 403 with a /dashboard redirect and the handler
// never runs.
func RequireRole(logger *slog.Logger, checker RoleChecker, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "RequireRole"), slog.String("role", role))

			userID, ok := GetUserIDFromContext(ctx)
			if !ok || userID == "" {
				l.WarnContext(ctx, "User ID missing from context")
				api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authentication required", LoginRedirect)
				return
			}

			hasRole, err := checker.HasRole(ctx, userID, role)
			if err != nil {
				l.ErrorContext(ctx, "Role check failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusInternalServerError, "Cannot verify role")
				return
			}
			if !hasRole {
				l.WarnContext(ctx, "Role check denied", slog.String("userID", userID))
				api.GuardRedirectResponse(w, r, http.StatusForbidden, fmt.Sprintf("Requires the '%s' role", role), DashboardRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions to get claims from context

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

func verifyAudience(claimsAudience jwt.ClaimStrings, expectedAudience string) bool {
	if expectedAudience == "" {
		return true
	}
	if len(claimsAudience) == 0 {
		return false
	}
	for _, aud := range claimsAudience {
		if aud == expectedAudience {
			return true
		}
	}
	return false
}
