package feed

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
)

// heartbeatInterval keeps intermediaries from closing idle SSE
// connections.
const heartbeatInterval = 30 * time.Second

// FeedHandler serves the change feed over Server-Sent Events.
// Dashboard clients re-fetch whatever view they show when an event for
// a table they care about arrives.
type FeedHandler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewFeedHandler(hub *Hub, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		logger: logger,
	}
}

// Changes streams table-change events until the client disconnects.
func (h *FeedHandler) Changes(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case payload, open := <-events:
			if !open {
				// Dropped by the hub for falling behind.
				h.logger.DebugContext(ctx, "SSE subscriber dropped")
				return
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
