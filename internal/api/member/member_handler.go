package member

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
)

// MemberHandler handles HTTP requests for the dashboard and public
// profile pages.
type MemberHandler struct {
	memberService MemberService
	logger        *slog.Logger
}

func NewMemberHandler(memberService MemberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		logger:        logger,
	}
}

// ListMembers serves the dashboard member cards.
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	members, err := h.memberService.ListMembers(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list members", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not load members")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, members)
}

// GetPublicProfile serves another member's profile page.
func (h *MemberHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	view, err := h.memberService.GetPublicProfile(r.Context(), userID)
	if err != nil {
		api.ErrorResponse(w, r, api.StatusFromError(err), "Profile not available")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// Home is the public landing payload.
func Home(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
		"name":    "couple-connect",
		"status":  "ok",
		"message": "Welcome",
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}
