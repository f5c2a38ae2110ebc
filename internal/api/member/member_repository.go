package member

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure implementation satisfies the interface
var _ MemberRepo = (*PostgresMemberRepo)(nil)

// memberRow is the raw listing row; the service turns birth dates into
// ages before anything leaves the API.
type memberRow struct {
	ID        uuid.UUID
	Username  *string
	BirthDate *time.Time
	City      *string
	AvatarURL *string
	IsOnline  bool
}

// MemberRepo defines the persistence contract for member discovery.
type MemberRepo interface {
	ListApproved(ctx context.Context, limit int) ([]memberRow, error)
}

// PostgresMemberRepo implements MemberRepo on pgx.
type PostgresMemberRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresMemberRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresMemberRepo {
	return &PostgresMemberRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// ListApproved returns approved members only, the most recently active
// first.
func (r *PostgresMemberRepo) ListApproved(ctx context.Context, limit int) ([]memberRow, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT id, username, birth_date, city, avatar_url, is_online
	     FROM profiles
	     WHERE approval_status = 'approved'
	     ORDER BY last_seen_at DESC NULLS LAST, created_at DESC
	     LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list approved members: query failed: %w", err)
	}
	defer rows.Close()

	var members []memberRow
	for rows.Next() {
		var m memberRow
		if err := rows.Scan(&m.ID, &m.Username, &m.BirthDate, &m.City, &m.AvatarURL, &m.IsOnline); err != nil {
			return nil, fmt.Errorf("list approved members: scan failed: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list approved members: rows failed: %w", err)
	}
	return members, nil
}
