package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/api/admin"
	"github.com/FACorreiaa/go-couple-connect/internal/api/auth"
	"github.com/FACorreiaa/go-couple-connect/internal/api/feed"
	"github.com/FACorreiaa/go-couple-connect/internal/api/member"
	"github.com/FACorreiaa/go-couple-connect/internal/api/notify"
	"github.com/FACorreiaa/go-couple-connect/internal/api/profile"
)

// Route is one entry in the static route table. The table is built
// once at startup and never mutated: ordering is the registration
// order, and chi resolves the first matching pattern.
type Route struct {
	Method       string
	Path         string
	Protected    bool   // requires a valid session
	RequiredRole string // additionally requires this role
	RateLimited  bool   // per-IP rate limit (auth endpoints)
	Implemented  bool   // false serves the coming-soon placeholder
	Handler      http.HandlerFunc
}

// Handlers carries every feature handler the route table binds to.
type Handlers struct {
	Auth    *auth.AuthHandler
	Profile *profile.ProfileHandler
	Admin   *admin.AdminHandler
	Member  *member.MemberHandler
	Notify  *notify.NotifyHandler
	Feed    *feed.FeedHandler
}

// Config contains dependencies needed for the router setup.
type Config struct {
	Logger         *slog.Logger
	JWT            config.JWTConfig
	RoleChecker    auth.RoleChecker
	AllowedOrigins []string
	Handlers       Handlers
}

// RoleAdmin guards the moderation dashboard.
const RoleAdmin = "admin"

// routeTable lists every route the application serves. Pages the
// original navigation links to but that are not built yet stay in the
// table as placeholders so the paths are reserved and guarded.
func routeTable(h Handlers) []Route {
	return []Route{
		// Public pages
		{Method: http.MethodGet, Path: "/", Implemented: true, Handler: member.Home},
		{Method: http.MethodGet, Path: "/health", Implemented: true, Handler: member.Health},

		// Auth
		{Method: http.MethodPost, Path: "/api/v1/auth/register", RateLimited: true, Implemented: true, Handler: h.Auth.Register},
		{Method: http.MethodPost, Path: "/api/v1/auth/login", RateLimited: true, Implemented: true, Handler: h.Auth.Login},
		{Method: http.MethodPost, Path: "/api/v1/auth/refresh", RateLimited: true, Implemented: true, Handler: h.Auth.RefreshSession},
		{Method: http.MethodPost, Path: "/api/v1/auth/logout", Protected: true, Implemented: true, Handler: h.Auth.Logout},
		{Method: http.MethodPost, Path: "/api/v1/auth/logout-all", Protected: true, Implemented: true, Handler: h.Auth.LogoutAll},
		{Method: http.MethodGet, Path: "/api/v1/auth/session", Protected: true, Implemented: true, Handler: h.Auth.GetSession},

		// Member pages
		{Method: http.MethodGet, Path: "/api/v1/dashboard/members", Protected: true, Implemented: true, Handler: h.Member.ListMembers},
		{Method: http.MethodGet, Path: "/api/v1/members/{userID}", Protected: true, Implemented: true, Handler: h.Member.GetPublicProfile},

		// Own profile
		{Method: http.MethodGet, Path: "/api/v1/profile", Protected: true, Implemented: true, Handler: h.Profile.GetOwnProfile},
		{Method: http.MethodPut, Path: "/api/v1/profile", Protected: true, Implemented: true, Handler: h.Profile.UpdateProfile},
		{Method: http.MethodPost, Path: "/api/v1/profile/photos", Protected: true, Implemented: true, Handler: h.Profile.UploadPhoto},
		{Method: http.MethodPut, Path: "/api/v1/profile/photos/{photoID}/primary", Protected: true, Implemented: true, Handler: h.Profile.SetPrimaryPhoto},
		{Method: http.MethodDelete, Path: "/api/v1/profile/photos/{photoID}", Protected: true, Implemented: true, Handler: h.Profile.DeletePhoto},
		{Method: http.MethodPost, Path: "/api/v1/profile/heartbeat", Protected: true, Implemented: true, Handler: h.Profile.Heartbeat},

		// Realtime change feed
		{Method: http.MethodGet, Path: "/api/v1/feed/changes", Protected: true, Implemented: true, Handler: h.Feed.Changes},

		// Moderation dashboard
		{Method: http.MethodGet, Path: "/api/v1/admin/stats", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.GetStats},
		{Method: http.MethodGet, Path: "/api/v1/admin/profiles", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.ListPendingProfiles},
		{Method: http.MethodGet, Path: "/api/v1/admin/photos", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.ListPendingPhotos},
		{Method: http.MethodPut, Path: "/api/v1/admin/profiles/{userID}/status", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.UpdateProfileStatus},
		{Method: http.MethodPost, Path: "/api/v1/admin/photos/approve", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.ApprovePhotos},
		{Method: http.MethodPost, Path: "/api/v1/admin/photos/reject", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.RejectPhotos},
		{Method: http.MethodGet, Path: "/api/v1/admin/audit", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.GetAuditLog},
		{Method: http.MethodGet, Path: "/api/v1/admin/history", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.GetProfileHistory},
		{Method: http.MethodGet, Path: "/api/v1/admin/notifications", Protected: true, RequiredRole: RoleAdmin, Implemented: true, Handler: h.Admin.GetNotifications},

		// Notification drain for external schedulers; guarded by the
		// cron secret inside the handler, not by a session.
		{Method: http.MethodPost, Path: "/api/v1/notify/run", Implemented: true, Handler: h.Notify.Run},

		// Linked but not built yet
		{Method: http.MethodGet, Path: "/api/v1/users", Protected: true},
		{Method: http.MethodGet, Path: "/api/v1/messages", Protected: true},
		{Method: http.MethodGet, Path: "/api/v1/private-messages", Protected: true},
		{Method: http.MethodGet, Path: "/api/v1/search", Protected: true},
		{Method: http.MethodGet, Path: "/api/v1/friends", Protected: true},
	}
}

func notImplemented(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusNotImplemented, api.Response{
		Success: false,
		Message: "This page is coming soon",
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	api.ErrorResponse(w, r, http.StatusNotFound, fmt.Sprintf("No route for %s", r.URL.Path))
}

// SetupRouter builds the chi router by walking the route table and
// wiring the guards each entry asks for. Server-wide middleware
// (request id, logger, recoverer) is applied in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	authenticate := auth.Authenticate(cfg.Logger, cfg.JWT)
	rateLimit := httprate.LimitByIP(10, time.Minute)
	roleGuards := make(map[string]func(http.Handler) http.Handler)

	for _, route := range routeTable(cfg.Handlers) {
		var handler http.Handler
		if route.Implemented && route.Handler != nil {
			handler = route.Handler
		} else {
			handler = http.HandlerFunc(notImplemented)
		}

		// Guards wrap outside-in: rate limit, then session, then role.
		if route.RequiredRole != "" {
			guard, ok := roleGuards[route.RequiredRole]
			if !ok {
				guard = auth.RequireRole(cfg.Logger, cfg.RoleChecker, route.RequiredRole)
				roleGuards[route.RequiredRole] = guard
			}
			handler = guard(handler)
		}
		if route.Protected || route.RequiredRole != "" {
			handler = authenticate(handler)
		}
		if route.RateLimited {
			handler = rateLimit(handler)
		}

		r.Method(route.Method, route.Path, handler)
	}

	r.NotFound(notFound)
	return r
}
