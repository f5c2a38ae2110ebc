package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/api/auth"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// ProfileHandler handles HTTP requests for the authenticated member's
// own profile and gallery.
type ProfileHandler struct {
	profileService ProfileService
	logger         *slog.Logger
}

func NewProfileHandler(profileService ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

func (h *ProfileHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authentication required", auth.LoginRedirect)
		return "", false
	}
	return userID, true
}

// GetOwnProfile returns the caller's profile plus the full gallery,
// pending photos included.
func (h *ProfileHandler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.profileService.GetProfileWithPhotos(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to fetch profile", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not load profile")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// UpdateProfile applies a partial update to the caller's profile.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.profileService.UpdateProfile(r.Context(), userID, params)
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to update profile", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not update profile")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// UploadPhoto accepts a multipart upload under the "photo" field. An
// optional "set_primary" field promotes the new photo.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing 'photo' form field")
		return
	}
	defer file.Close()

	setPrimary := r.FormValue("set_primary") == "true"
	contentType := header.Header.Get("Content-Type")

	photo, err := h.profileService.UploadPhoto(r.Context(), userID, header.Filename, contentType, header.Size, file, setPrimary)
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Photo upload failed", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not upload photo")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, photo)
}

// SetPrimaryPhoto promotes one of the caller's photos.
func (h *ProfileHandler) SetPrimaryPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoID")
	if err := h.profileService.SetPrimaryPhoto(r.Context(), userID, photoID); err != nil {
		h.logger.WarnContext(r.Context(), "Set primary photo failed", slog.Any("error", err), slog.String("photoID", photoID))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not set primary photo")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Primary photo updated"})
}

// DeletePhoto removes one of the caller's photos.
func (h *ProfileHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoID")
	if err := h.profileService.DeletePhoto(r.Context(), userID, photoID); err != nil {
		h.logger.WarnContext(r.Context(), "Delete photo failed", slog.Any("error", err), slog.String("photoID", photoID))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not delete photo")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Photo deleted"})
}

// Heartbeat records member activity for the online indicator.
func (h *ProfileHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.profileService.MarkLastSeen(r.Context(), userID); err != nil {
		h.logger.WarnContext(r.Context(), "Heartbeat failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not record activity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
