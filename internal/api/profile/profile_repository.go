package profile

import (
	"context"
	"errors"
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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Ensure implementation satisfies the interface
var _ ProfileRepo = (*PostgresProfileRepo)(nil)

// FieldChange is one profile_change_log row waiting to be written.
type FieldChange struct {
	Field    string
	OldValue *string
	NewValue *string
}

// ProfileRepo defines the persistence contract for member profiles and
// their photo galleries.
type ProfileRepo interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	UpdateProfile(ctx context.Context, userID string, params types.UpdateProfileParams) error
	RecordProfileChanges(ctx context.Context, userID, changedBy string, changes []FieldChange) error
	MarkLastSeen(ctx context.Context, userID string) error

	GetPhotos(ctx context.Context, userID string) ([]types.ProfilePhoto, error)
	GetApprovedPhotos(ctx context.Context, userID string) ([]types.ProfilePhoto, error)
	GetPhoto(ctx context.Context, userID, photoID string) (*types.ProfilePhoto, error)
	InsertPhoto(ctx context.Context, userID, photoURL, storageKey string, requestedPrimary bool) (*types.ProfilePhoto, error)
	SetPrimaryPhoto(ctx context.Context, userID, photoID string) error
	UnsetOtherPrimaryPhotos(ctx context.Context, userID, keepPhotoID string) error
	DeletePhoto(ctx context.Context, userID, photoID string) error
}

// PostgresProfileRepo implements ProfileRepo on pgx.
type PostgresProfileRepo struct {
	logger *slog.Logger
	pgpool PGXQuerier
}

func NewPostgresProfileRepo(pgpool PGXQuerier, logger *slog.Logger) *PostgresProfileRepo {
	return &PostgresProfileRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const profileColumns = `id, username, city, gender, birth_date, looking_for, fetishes,
       bio, avatar_url, height_cm, weight_kg, is_verified_18_plus, is_online,
       last_seen_at, approval_status, rejection_reason, approved_by, approved_at,
       created_at, updated_at`

func scanProfile(row pgx.Row) (*types.Profile, error) {
	var p types.Profile
	var gender *string
	err := row.Scan(
		&p.ID, &p.Username, &p.City, &gender, &p.BirthDate, &p.LookingFor,
		&p.Fetishes, &p.Bio, &p.AvatarURL, &p.HeightCm, &p.WeightKg,
		&p.IsVerified18, &p.IsOnline, &p.LastSeenAt, &p.ApprovalStatus,
		&p.RejectionReason, &p.ApprovedBy, &p.ApprovedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gender != nil {
		g := types.Gender(*gender)
		p.Gender = &g
	}
	return &p, nil
}

func (r *PostgresProfileRepo) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	row := r.pgpool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM profiles WHERE id = $1", profileColumns), userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: query failed: %w", err)
	}
	return p, nil
}

// UpdateProfile applies a partial update; only the provided fields
// change. A no-op params set still bumps updated_at.
func (r *PostgresProfileRepo) UpdateProfile(ctx context.Context, userID string, params types.UpdateProfileParams) error {
	builder := sq.Update("profiles").
		PlaceholderFormat(sq.Dollar).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID})

	if params.Username != nil {
		builder = builder.Set("username", *params.Username)
	}
	if params.City != nil {
		builder = builder.Set("city", *params.City)
	}
	if params.Gender != nil {
		builder = builder.Set("gender", string(*params.Gender))
	}
	if params.BirthDate != nil {
		builder = builder.Set("birth_date", *params.BirthDate)
	}
	if params.LookingFor != nil {
		builder = builder.Set("looking_for", params.LookingFor)
	}
	if params.Fetishes != nil {
		builder = builder.Set("fetishes", params.Fetishes)
	}
	if params.Bio != nil {
		builder = builder.Set("bio", *params.Bio)
	}
	if params.HeightCm != nil {
		builder = builder.Set("height_cm", *params.HeightCm)
	}
	if params.WeightKg != nil {
		builder = builder.Set("weight_kg", *params.WeightKg)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("update profile: build query failed: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

// RecordProfileChanges appends one history row per changed field.
func (r *PostgresProfileRepo) RecordProfileChanges(ctx context.Context, userID, changedBy string, changes []FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range changes {
		batch.Queue(
			`INSERT INTO profile_change_log (user_id, field, old_value, new_value, changed_by)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, c.Field, c.OldValue, c.NewValue, changedBy)
	}
	results := r.pgpool.SendBatch(ctx, batch)
	defer results.Close()
	for range changes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("record profile changes: insert failed: %w", err)
		}
	}
	return nil
}

func (r *PostgresProfileRepo) MarkLastSeen(ctx context.Context, userID string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE profiles SET last_seen_at = now(), is_online = TRUE WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("mark last seen: db update failed: %w", err)
	}
	return nil
}

const photoColumns = `id, user_id, photo_url, storage_key, is_primary, requested_primary,
       approval_status, rejection_reason, approved_by, approved_at, rejected_at, uploaded_at`

func scanPhotos(rows pgx.Rows) ([]types.ProfilePhoto, error) {
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

// GetPhotos returns the full gallery, primary first then newest first.
func (r *PostgresProfileRepo) GetPhotos(ctx context.Context, userID string) ([]types.ProfilePhoto, error) {
	rows, err := r.pgpool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM profile_photos
	     WHERE user_id = $1
	     ORDER BY is_primary DESC, uploaded_at DESC`, photoColumns), userID)
	if err != nil {
		return nil, fmt.Errorf("get photos: query failed: %w", err)
	}
	return scanPhotos(rows)
}

// GetApprovedPhotos is the public-view variant of GetPhotos.
func (r *PostgresProfileRepo) GetApprovedPhotos(ctx context.Context, userID string) ([]types.ProfilePhoto, error) {
	rows, err := r.pgpool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM profile_photos
	     WHERE user_id = $1 AND approval_status = 'approved'
	     ORDER BY is_primary DESC, uploaded_at DESC`, photoColumns), userID)
	if err != nil {
		return nil, fmt.Errorf("get approved photos: query failed: %w", err)
	}
	return scanPhotos(rows)
}

func (r *PostgresProfileRepo) GetPhoto(ctx context.Context, userID, photoID string) (*types.ProfilePhoto, error) {
	rows, err := r.pgpool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM profile_photos WHERE id = $1 AND user_id = $2", photoColumns),
		photoID, userID)
	if err != nil {
		return nil, fmt.Errorf("get photo: query failed: %w", err)
	}
	photos, err := scanPhotos(rows)
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	if len(photos) == 0 {
		return nil, api.ErrNotFound
	}
	return &photos[0], nil
}

func (r *PostgresProfileRepo) InsertPhoto(ctx context.Context, userID, photoURL, storageKey string, requestedPrimary bool) (*types.ProfilePhoto, error) {
	rows, err := r.pgpool.Query(ctx,
		fmt.Sprintf(`INSERT INTO profile_photos (user_id, photo_url, storage_key, requested_primary)
	     VALUES ($1, $2, $3, $4)
	     RETURNING %s`, photoColumns),
		userID, photoURL, storageKey, requestedPrimary)
	if err != nil {
		return nil, fmt.Errorf("insert photo: query failed: %w", err)
	}
	photos, err := scanPhotos(rows)
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("insert photo: no row returned")
	}
	return &photos[0], nil
}

func (r *PostgresProfileRepo) SetPrimaryPhoto(ctx context.Context, userID, photoID string) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE profile_photos SET is_primary = TRUE WHERE id = $1 AND user_id = $2",
		photoID, userID)
	if err != nil {
		return fmt.Errorf("set primary photo: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

// UnsetOtherPrimaryPhotos clears the flag on every photo except the
// one just promoted. Runs after SetPrimaryPhoto; the pair is not
// transactional.
func (r *PostgresProfileRepo) UnsetOtherPrimaryPhotos(ctx context.Context, userID, keepPhotoID string) error {
	_, err := r.pgpool.Exec(ctx,
		"UPDATE profile_photos SET is_primary = FALSE WHERE user_id = $1 AND id <> $2 AND is_primary = TRUE",
		userID, keepPhotoID)
	if err != nil {
		return fmt.Errorf("unset other primary photos: db update failed: %w", err)
	}
	return nil
}

func (r *PostgresProfileRepo) DeletePhoto(ctx context.Context, userID, photoID string) error {
	tag, err := r.pgpool.Exec(ctx,
		"DELETE FROM profile_photos WHERE id = $1 AND user_id = $2", photoID, userID)
	if err != nil {
		return fmt.Errorf("delete photo: db delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}
