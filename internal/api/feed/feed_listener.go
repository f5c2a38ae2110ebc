package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// changeChannel is the NOTIFY channel installed by the migrations'
// table triggers.
const changeChannel = "table_changes"

// Listener bridges Postgres NOTIFY payloads into the hub. It holds one
// dedicated connection from the pool and reconnects with backoff when
// the connection drops.
type Listener struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
	hub    *Hub
}

func NewListener(pgpool *pgxpool.Pool, hub *Hub, logger *slog.Logger) *Listener {
	return &Listener{
		logger: logger,
		pgpool: pgpool,
		hub:    hub,
	}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := l.listen(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("Change feed listener disconnected", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pgpool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", changeChannel, err)
	}
	l.logger.Info("Change feed listener attached", slog.String("channel", changeChannel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.hub.Broadcast(notification.Payload)
	}
}
