package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Ensure implementation satisfies the interface
var _ NotifyRepo = (*PostgresNotifyRepo)(nil)

// NotifyRepo defines the persistence contract for the notification
// queue.
type NotifyRepo interface {
	ListPending(ctx context.Context, limit int) ([]types.AdminNotification, error)
	MarkSent(ctx context.Context, id string) error
	MarkError(ctx context.Context, id, message string) error
}

// PostgresNotifyRepo implements NotifyRepo on pgx.
type PostgresNotifyRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresNotifyRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresNotifyRepo {
	return &PostgresNotifyRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// ListPending returns queued rows oldest first so alerts go out in the
// order the work appeared.
func (r *PostgresNotifyRepo) ListPending(ctx context.Context, limit int) ([]types.AdminNotification, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT id, type, target_user_id, target_photo_id, status, error_message, created_at
	     FROM admin_notifications
	     WHERE status = 'pending'
	     ORDER BY created_at ASC
	     LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: query failed: %w", err)
	}
	defer rows.Close()

	var items []types.AdminNotification
	for rows.Next() {
		var n types.AdminNotification
		if err := rows.Scan(&n.ID, &n.Type, &n.TargetUserID, &n.TargetPhotoID, &n.Status, &n.ErrorMessage, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("list pending notifications: scan failed: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending notifications: rows failed: %w", err)
	}
	return items, nil
}

func (r *PostgresNotifyRepo) MarkSent(ctx context.Context, id string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE admin_notifications SET status = 'sent', error_message = NULL WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark notification sent: db update failed: %w", err)
	}
	return nil
}

func (r *PostgresNotifyRepo) MarkError(ctx context.Context, id, message string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE admin_notifications SET status = 'error', error_message = $1 WHERE id = $2",
		message, id)
	if err != nil {
		return fmt.Errorf("mark notification error: db update failed: %w", err)
	}
	return nil
}
