package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/api/auth"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// UpdateProfileStatusRequest carries a moderation verdict for one
// member profile.
type UpdateProfileStatusRequest struct {
	Status types.ApprovalStatus `json:"status"`
	Reason *string              `json:"reason,omitempty"`
}

// BatchPhotosRequest carries a verdict for a set of photos.
type BatchPhotosRequest struct {
	PhotoIDs []string `json:"photo_ids"`
	Reason   *string  `json:"reason,omitempty"`
}

// BatchPhotosResponse reports how many rows the verdict touched.
type BatchPhotosResponse struct {
	Updated int64 `json:"updated"`
}

// AdminHandler handles HTTP requests for the moderation dashboard. All
// of its routes sit behind the admin role guard.
type AdminHandler struct {
	adminService AdminService
	logger       *slog.Logger
}

func NewAdminHandler(adminService AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

func (h *AdminHandler) adminID(w http.ResponseWriter, r *http.Request) (string, bool) {
	adminID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || adminID == "" {
		api.GuardRedirectResponse(w, r, http.StatusUnauthorized, "Authentication required", auth.LoginRedirect)
		return "", false
	}
	return adminID, true
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

// statusesParam parses ?status=pending,in_review into a filter set.
// Unknown values are dropped; an empty result means "use the default".
func statusesParam(r *http.Request) []types.ApprovalStatus {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil
	}
	var statuses []types.ApprovalStatus
	for _, part := range strings.Split(raw, ",") {
		switch s := types.ApprovalStatus(strings.TrimSpace(part)); s {
		case types.ApprovalStatusPending, types.ApprovalStatusInReview,
			types.ApprovalStatusApproved, types.ApprovalStatusRejected:
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// GetStats serves the dashboard counters.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetStats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to load moderation stats", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load stats")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, stats)
}

// ListPendingProfiles serves the profile moderation queue.
func (h *AdminHandler) ListPendingProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.adminService.ListPendingProfiles(r.Context(), statusesParam(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list pending profiles", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load pending profiles")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profiles)
}

// ListPendingPhotos serves the photo moderation queue.
func (h *AdminHandler) ListPendingPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.adminService.ListPendingPhotos(r.Context(), statusesParam(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list pending photos", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load pending photos")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, photos)
}

// UpdateProfileStatus records a verdict for one member.
func (h *AdminHandler) UpdateProfileStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.adminID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileStatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	userID := chi.URLParam(r, "userID")
	err := h.adminService.UpdateProfileStatus(r.Context(), adminID, userID, req.Status, req.Reason)
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to update profile status", slog.Any("error", err), slog.String("userID", userID))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not update profile status")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Profile status updated"})
}

// ApprovePhotos applies an approve verdict to a photo id set.
func (h *AdminHandler) ApprovePhotos(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.adminID(w, r)
	if !ok {
		return
	}

	var req BatchPhotosRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.adminService.ApprovePhotosBatch(r.Context(), adminID, req.PhotoIDs)
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Batch photo approval failed", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not approve photos")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, BatchPhotosResponse{Updated: updated})
}

// RejectPhotos applies a reject verdict to a photo id set.
func (h *AdminHandler) RejectPhotos(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.adminID(w, r)
	if !ok {
		return
	}

	var req BatchPhotosRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.adminService.RejectPhotosBatch(r.Context(), adminID, req.PhotoIDs, req.Reason)
	if err != nil {
		if errors.Is(err, api.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Batch photo rejection failed", slog.Any("error", err))
		api.ErrorResponse(w, r, api.StatusFromError(err), "Could not reject photos")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, BatchPhotosResponse{Updated: updated})
}

// GetAuditLog serves the audit feed, most recent first.
func (h *AdminHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.adminService.GetAuditLog(r.Context(), limitParam(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to load audit log", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load audit log")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, entries)
}

// GetProfileHistory serves the change feed, optionally scoped to one
// member via ?user_id=.
func (h *AdminHandler) GetProfileHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.adminService.GetProfileHistory(r.Context(), r.URL.Query().Get("user_id"), limitParam(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to load profile history", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load profile history")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, entries)
}

// GetNotifications serves the queued/sent email alerts feed.
func (h *AdminHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.adminService.GetNotifications(r.Context(), limitParam(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to load notifications", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load notifications")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, items)
}
