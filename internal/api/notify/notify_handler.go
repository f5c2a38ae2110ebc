package notify

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
)

// NotifyHandler exposes the queue drain to an external scheduler. The
// endpoint is guarded by a shared cron secret, not a user session.
type NotifyHandler struct {
	notifyService NotifyService
	cronSecret    string
	logger        *slog.Logger
}

func NewNotifyHandler(notifyService NotifyService, cronSecret string, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{
		notifyService: notifyService,
		cronSecret:    cronSecret,
		logger:        logger,
	}
}

// Run drains one batch. Accepts ?batch= to override the configured
// batch size.
func (h *NotifyHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Notification processing is not configured")
		return
	}

	authHeader := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		h.logger.WarnContext(r.Context(), "Notification run with bad cron secret")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid cron secret")
		return
	}

	batch := 0
	if raw := r.URL.Query().Get("batch"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			batch = parsed
		}
	}

	summary, err := h.notifyService.ProcessPending(r.Context(), batch)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Notification batch failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Could not process notifications")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, summary)
}

// Worker drains the queue on a fixed interval so alerts still go out
// without an external scheduler.
type Worker struct {
	notifyService NotifyService
	interval      time.Duration
	logger        *slog.Logger
}

func NewWorker(notifyService NotifyService, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		notifyService: notifyService,
		interval:      interval,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Notification worker started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Notification worker stopped")
			return
		case <-ticker.C:
			if _, err := w.notifyService.ProcessPending(ctx, 0); err != nil {
				w.logger.Error("Notification worker pass failed", slog.Any("error", err))
			}
		}
	}
}
