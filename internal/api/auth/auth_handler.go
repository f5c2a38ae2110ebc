package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
)

// AuthHandler handles HTTP requests for authentication operations.
type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register creates a new account plus its pending profile.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.authService.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Registration failed", slog.Any("error", err), slog.String("email", req.Email))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create account. Please try again.")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, api.Response{
		Success: true,
		Message: "Account created successfully",
	})
}

// Login authenticates a user and returns access and refresh tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Please enter both email and password")
		return
	}

	accessToken, refreshToken, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Login failed", slog.Any("error", err), slog.String("email", req.Email))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Authentication failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Message:      "Login successful",
	})
}

// Logout invalidates the presented refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.ErrorContext(r.Context(), "Logout failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to logout")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{
		Success: true,
		Message: "Logged out successfully",
	})
}

// LogoutAll revokes every session belonging to the authenticated user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authentication required", LoginRedirect)
		return
	}

	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		h.logger.ErrorContext(r.Context(), "Logout all failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to revoke sessions")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{
		Success: true,
		Message: "All sessions revoked",
	})
}

// RefreshSession rotates the token pair.
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Token refresh failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// GetSession returns the authenticated identity plus its roles.
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authentication required", LoginRedirect)
		return
	}

	user, err := h.authService.GetSession(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Session lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Session not found")
		return
	}

	roles, err := h.authService.GetUserRoles(r.Context(), userID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Role lookup failed", slog.Any("error", err))
		roles = nil // identity still valid without roles
	}

	api.WriteJSONResponse(w, r, http.StatusOK, SessionResponse{
		ID:    user.ID,
		Email: user.Email,
		Roles: roles,
	})
}
