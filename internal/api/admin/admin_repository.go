package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// PGXQuerier is the pgxpool.Pool surface the repository uses. Tests
// substitute a pgxmock pool.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure implementation satisfies the interface
var _ AdminRepo = (*PostgresAdminRepo)(nil)

// AdminRepo defines the persistence contract for moderation.
type AdminRepo interface {
	CountProfilesByStatuses(ctx context.Context, statuses []types.ApprovalStatus) (int64, error)
	CountPhotosByStatuses(ctx context.Context, statuses []types.ApprovalStatus) (int64, error)
	CountUsers(ctx context.Context) (int64, error)

	ListProfilesByStatus(ctx context.Context, statuses []types.ApprovalStatus) ([]types.Profile, error)
	ListPhotosByStatus(ctx context.Context, statuses []types.ApprovalStatus) ([]types.ProfilePhoto, error)

	UpdateProfileStatus(ctx context.Context, userID string, status types.ApprovalStatus, reason *string, adminID string) error
	UpdatePhotosStatus(ctx context.Context, photoIDs []string, status types.ApprovalStatus, reason *string, adminID string) (int64, error)
	GetPhotosByIDs(ctx context.Context, photoIDs []string) ([]types.ProfilePhoto, error)
	PromotePrimaryPhoto(ctx context.Context, userID, photoID string) error
	DemoteOtherPhotos(ctx context.Context, userID, keepPhotoID string) error
	SyncAvatar(ctx context.Context, userID, photoURL string) error

	AppendAudit(ctx context.Context, entry types.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]types.AuditEntry, error)
	ListProfileHistory(ctx context.Context, userID string, limit int) ([]types.ChangeLogEntry, error)
	ListNotifications(ctx context.Context, limit int) ([]types.AdminNotification, error)
}

// PostgresAdminRepo implements AdminRepo on pgx.
type PostgresAdminRepo struct {
	logger *slog.Logger
	pgpool PGXQuerier
}

func NewPostgresAdminRepo(pgpool PGXQuerier, logger *slog.Logger) *PostgresAdminRepo {
	return &PostgresAdminRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *PostgresAdminRepo) countWhere(ctx context.Context, table string, pred any) (int64, error) {
	builder := psql.Select("COUNT(*)").From(table)
	if pred != nil {
		builder = builder.Where(pred)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("count %s: build query failed: %w", table, err)
	}
	var count int64
	if err := r.pgpool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: query failed: %w", table, err)
	}
	return count, nil
}

// CountProfilesByStatuses counts across the whole status set so the
// dashboard numbers agree with the queues they summarize.
func (r *PostgresAdminRepo) CountProfilesByStatuses(ctx context.Context, statuses []types.ApprovalStatus) (int64, error) {
	return r.countWhere(ctx, "profiles", sq.Eq{"approval_status": statusStrings(statuses)})
}

func (r *PostgresAdminRepo) CountPhotosByStatuses(ctx context.Context, statuses []types.ApprovalStatus) (int64, error) {
	return r.countWhere(ctx, "profile_photos", sq.Eq{"approval_status": statusStrings(statuses)})
}

func (r *PostgresAdminRepo) CountUsers(ctx context.Context) (int64, error) {
	return r.countWhere(ctx, "users", nil)
}

func statusStrings(statuses []types.ApprovalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ListProfilesByStatus returns the moderation queue, oldest first so
// the longest-waiting members are reviewed first.
func (r *PostgresAdminRepo) ListProfilesByStatus(ctx context.Context, statuses []types.ApprovalStatus) ([]types.Profile, error) {
	query, args, err := psql.Select(
		"id", "username", "city", "gender", "birth_date", "looking_for", "fetishes",
		"bio", "avatar_url", "height_cm", "weight_kg", "is_verified_18_plus", "is_online",
		"last_seen_at", "approval_status", "rejection_reason", "approved_by", "approved_at",
		"created_at", "updated_at").
		From("profiles").
		Where(sq.Eq{"approval_status": statusStrings(statuses)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("list profiles: build query failed: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: query failed: %w", err)
	}
	defer rows.Close()

	var profiles []types.Profile
	for rows.Next() {
		var p types.Profile
		var gender *string
		err := rows.Scan(
			&p.ID, &p.Username, &p.City, &gender, &p.BirthDate, &p.LookingFor,
			&p.Fetishes, &p.Bio, &p.AvatarURL, &p.HeightCm, &p.WeightKg,
			&p.IsVerified18, &p.IsOnline, &p.LastSeenAt, &p.ApprovalStatus,
			&p.RejectionReason, &p.ApprovedBy, &p.ApprovedAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list profiles: scan failed: %w", err)
		}
		if gender != nil {
			g := types.Gender(*gender)
			p.Gender = &g
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: rows failed: %w", err)
	}
	return profiles, nil
}

func scanPhotoRows(rows pgx.Rows) ([]types.ProfilePhoto, error) {
	defer rows.Close()
	var photos []types.ProfilePhoto
	for rows.Next() {
		var p types.ProfilePhoto
		err := rows.Scan(
			&p.ID, &p.UserID, &p.PhotoURL, &p.StorageKey, &p.IsPrimary,
			&p.RequestedPrimary, &p.ApprovalStatus, &p.RejectionReason,
			&p.ApprovedBy, &p.ApprovedAt, &p.RejectedAt, &p.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan photo failed: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("photo rows failed: %w", err)
	}
	return photos, nil
}

var photoSelectColumns = []string{
	"id", "user_id", "photo_url", "storage_key", "is_primary", "requested_primary",
	"approval_status", "rejection_reason", "approved_by", "approved_at", "rejected_at", "uploaded_at",
}

func (r *PostgresAdminRepo) ListPhotosByStatus(ctx context.Context, statuses []types.ApprovalStatus) ([]types.ProfilePhoto, error) {
	query, args, err := psql.Select(photoSelectColumns...).
		From("profile_photos").
		Where(sq.Eq{"approval_status": statusStrings(statuses)}).
		OrderBy("uploaded_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("list photos: build query failed: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: query failed: %w", err)
	}
	photos, err := scanPhotoRows(rows)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// UpdateProfileStatus writes the verdict. The approver stamp is only
// meaningful for approvals; any other verdict clears it.
func (r *PostgresAdminRepo) UpdateProfileStatus(ctx context.Context, userID string, status types.ApprovalStatus, reason *string, adminID string) error {
	var query string
	var args []any
	if status == types.ApprovalStatusApproved {
		query = `UPDATE profiles
	     SET approval_status = $1, rejection_reason = NULL, approved_by = $2,
	         approved_at = now(), updated_at = now()
	     WHERE id = $3`
		args = []any{status, adminID, userID}
	} else {
		query = `UPDATE profiles
	     SET approval_status = $1, rejection_reason = $2, approved_by = NULL,
	         approved_at = NULL, updated_at = now()
	     WHERE id = $3`
		args = []any{status, reason, userID}
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile status: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

// UpdatePhotosStatus applies one verdict to the whole id set and
// returns how many rows it touched.
func (r *PostgresAdminRepo) UpdatePhotosStatus(ctx context.Context, photoIDs []string, status types.ApprovalStatus, reason *string, adminID string) (int64, error) {
	builder := psql.Update("profile_photos").
		Set("approval_status", string(status)).
		Set("rejection_reason", reason).
		Set("approved_by", adminID).
		Where(sq.Eq{"id": photoIDs})
	if status == types.ApprovalStatusApproved {
		// A previously rejected photo loses its rejection stamp once it
		// is approved again.
		builder = builder.Set("approved_at", time.Now()).Set("rejected_at", nil)
	} else if status == types.ApprovalStatusRejected {
		builder = builder.Set("rejected_at", time.Now())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("update photos status: build query failed: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update photos status: db update failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresAdminRepo) GetPhotosByIDs(ctx context.Context, photoIDs []string) ([]types.ProfilePhoto, error) {
	query, args, err := psql.Select(photoSelectColumns...).
		From("profile_photos").
		Where(sq.Eq{"id": photoIDs}).
		OrderBy("uploaded_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("get photos by ids: build query failed: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get photos by ids: query failed: %w", err)
	}
	photos, err := scanPhotoRows(rows)
	if err != nil {
		return nil, fmt.Errorf("get photos by ids: %w", err)
	}
	return photos, nil
}

// PromotePrimaryPhoto flips the photo to primary and consumes its
// requested_primary flag.
func (r *PostgresAdminRepo) PromotePrimaryPhoto(ctx context.Context, userID, photoID string) error {
	_, err := r.pgpool.Exec(ctx,
		`UPDATE profile_photos SET is_primary = TRUE, requested_primary = FALSE
	     WHERE id = $1 AND user_id = $2`, photoID, userID)
	if err != nil {
		return fmt.Errorf("promote primary photo: db update failed: %w", err)
	}
	return nil
}

func (r *PostgresAdminRepo) DemoteOtherPhotos(ctx context.Context, userID, keepPhotoID string) error {
	_, err := r.pgpool.Exec(ctx,
		`UPDATE profile_photos SET is_primary = FALSE
	     WHERE user_id = $1 AND id <> $2 AND is_primary = TRUE`, userID, keepPhotoID)
	if err != nil {
		return fmt.Errorf("demote other photos: db update failed: %w", err)
	}
	return nil
}

func (r *PostgresAdminRepo) SyncAvatar(ctx context.Context, userID, photoURL string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE profiles SET avatar_url = $1, updated_at = now() WHERE id = $2",
		photoURL, userID)
	if err != nil {
		return fmt.Errorf("sync avatar: db update failed: %w", err)
	}
	return nil
}

// AppendAudit writes one audit row. Callers treat failures as
// report-only.
func (r *PostgresAdminRepo) AppendAudit(ctx context.Context, entry types.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("append audit: marshal details failed: %w", err)
	}
	_, err = r.pgpool.Exec(ctx,
		`INSERT INTO admin_audit_log (admin_id, action, target_user_id, target_photo_id, details)
	     VALUES ($1, $2, $3, $4, $5)`,
		entry.AdminID, entry.Action, entry.TargetUserID, entry.TargetPhotoID, details)
	if err != nil {
		return fmt.Errorf("append audit: db insert failed: %w", err)
	}
	return nil
}

func (r *PostgresAdminRepo) ListAudit(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT id, admin_id, action, target_user_id, target_photo_id, details, created_at
	     FROM admin_audit_log
	     ORDER BY created_at DESC
	     LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: query failed: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TargetUserID, &e.TargetPhotoID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list audit: scan failed: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("list audit: unmarshal details failed: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit: rows failed: %w", err)
	}
	return entries, nil
}

// ListProfileHistory returns change rows, most recent first. An empty
// userID means all members.
func (r *PostgresAdminRepo) ListProfileHistory(ctx context.Context, userID string, limit int) ([]types.ChangeLogEntry, error) {
	builder := psql.Select("id", "user_id", "field", "old_value", "new_value", "changed_by", "details", "changed_at").
		From("profile_change_log").
		OrderBy("changed_at DESC").
		Limit(uint64(limit))
	if userID != "" {
		builder = builder.Where(sq.Eq{"user_id": userID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list profile history: build query failed: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profile history: query failed: %w", err)
	}
	defer rows.Close()

	var entries []types.ChangeLogEntry
	for rows.Next() {
		var e types.ChangeLogEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Field, &e.OldValue, &e.NewValue, &e.ChangedBy, &details, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("list profile history: scan failed: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("list profile history: unmarshal details failed: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profile history: rows failed: %w", err)
	}
	return entries, nil
}

func (r *PostgresAdminRepo) ListNotifications(ctx context.Context, limit int) ([]types.AdminNotification, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT id, type, target_user_id, target_photo_id, status, error_message, created_at
	     FROM admin_notifications
	     ORDER BY created_at DESC
	     LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: query failed: %w", err)
	}
	defer rows.Close()

	var items []types.AdminNotification
	for rows.Next() {
		var n types.AdminNotification
		if err := rows.Scan(&n.ID, &n.Type, &n.TargetUserID, &n.TargetPhotoID, &n.Status, &n.ErrorMessage, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("list notifications: scan failed: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: rows failed: %w", err)
	}
	return items, nil
}
