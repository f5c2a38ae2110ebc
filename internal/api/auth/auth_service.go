package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-couple-connect/app/observability/metrics"
	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract for authentication.
type AuthService interface {
	Register(ctx context.Context, email, password, confirmPassword string) (string, error)
	Login(ctx context.Context, email, password string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)
	GetSession(ctx context.Context, userID string) (*types.AuthUser, error)
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// SessionEventPublisher receives session lifecycle events. The auth
// state store's bus satisfies this.
type SessionEventPublisher interface {
	Publish(evt types.SessionEvent)
}

// AuthServiceImpl provides the implementation for AuthService.
type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	cfg    *config.Config
	events SessionEventPublisher
}

// NewAuthService creates a new auth service instance. events may be nil
// when no listener cares about session changes (tests).
func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger, events SessionEventPublisher) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
		events: events,
	}
}

func (s *AuthServiceImpl) publish(evt types.SessionEvent) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}

// Register validates the form fields the way the registration page
// does (all present, min length 6, confirmation match), then creates
// the user with a pending profile.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, confirmPassword string) (string, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	if email == "" || password == "" || confirmPassword == "" {
		return "", fmt.Errorf("%w: please fill in all fields", api.ErrValidation)
	}
	if len(password) < 6 {
		return "", fmt.Errorf("%w: password must be at least 6 characters long", api.ErrValidation)
	}
	if password != confirmPassword {
		return "", fmt.Errorf("%w: passwords do not match", api.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.repo.Register(ctx, email, string(hashedPassword))
	if err != nil {
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		return "", err
	}

	metrics.Get().RegisterRequestsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "User registered", slog.String("userID", userID))
	return userID, nil
}

// Login verifies credentials and issues an access token plus a rotated
// refresh token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return "", "", fmt.Errorf("%w: invalid credentials", api.ErrUnauthenticated)
		}
		return "", "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", fmt.Errorf("%w: invalid credentials", api.ErrUnauthenticated)
	}

	accessToken, err := s.generateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.JWT.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	metrics.Get().LoginRequestsTotal.Add(ctx, 1)
	s.publish(types.SessionEvent{
		Kind: types.SessionSignedIn,
		User: &types.AuthUser{ID: user.ID, Email: user.Email},
		At:   time.Now(),
	})
	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID))
	return accessToken, refreshToken, nil
}

// Logout revokes the refresh token and announces the sign-out.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	l := s.logger.With(slog.String("method", "Logout"))

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.ErrorContext(ctx, "Failed to invalidate refresh token", slog.Any("error", err))
		return err
	}

	s.publish(types.SessionEvent{Kind: types.SessionSignedOut, At: time.Now()})
	l.InfoContext(ctx, "Logout successful")
	return nil
}

// LogoutAll revokes every refresh token the user holds, signing out
// all of their devices at once.
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID string) error {
	l := s.logger.With(slog.String("method", "LogoutAll"), slog.String("userID", userID))

	if err := s.repo.InvalidateAllUserRefreshTokens(ctx, userID); err != nil {
		l.ErrorContext(ctx, "Failed to invalidate user refresh tokens", slog.Any("error", err))
		return err
	}

	s.publish(types.SessionEvent{Kind: types.SessionSignedOut, At: time.Now()})
	l.InfoContext(ctx, "All sessions revoked")
	return nil
}

// RefreshSession rotates both tokens. The old refresh token is revoked
// after the new one is stored; a failure to revoke is logged only.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	l := s.logger.With(slog.String("method", "RefreshSession"))

	userID, err := s.repo.ValidateRefreshTokenAndGetUserID(ctx, refreshToken)
	if err != nil {
		return "", "", err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("refresh session: %w", err)
	}

	newAccessToken, err := s.generateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken := uuid.NewString()
	newExpiresAt := time.Now().Add(s.cfg.JWT.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, newRefreshToken, newExpiresAt); err != nil {
		return "", "", fmt.Errorf("failed to store new refresh token: %w", err)
	}

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.WarnContext(ctx, "Failed to invalidate old refresh token", slog.Any("error", err))
	}

	s.publish(types.SessionEvent{
		Kind: types.SessionRefreshed,
		User: &types.AuthUser{ID: user.ID, Email: user.Email},
		At:   time.Now(),
	})
	return newAccessToken, newRefreshToken, nil
}

// GetSession returns the identity attributes consumed by clients: id
// and email only.
func (s *AuthServiceImpl) GetSession(ctx context.Context, userID string) (*types.AuthUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &types.AuthUser{ID: user.ID, Email: user.Email}, nil
}

// GetUserRoles queries role assignments on demand, no caching beyond a
// single check.
func (s *AuthServiceImpl) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	return s.repo.GetUserRoles(ctx, userID)
}

// HasRole reports whether the user carries the given role.
func (s *AuthServiceImpl) HasRole(ctx context.Context, userID, role string) (bool, error) {
	roles, err := s.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// RolesFor adapts the service to the auth state store's RoleSource.
func (s *AuthServiceImpl) RolesFor(ctx context.Context, userID string) ([]string, error) {
	return s.repo.GetUserRoles(ctx, userID)
}

func (s *AuthServiceImpl) generateAccessToken(userID, email string) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.cfg.JWT.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.JWT.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
