package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-couple-connect/app/observability/metrics"
	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Ensure implementation satisfies the interface
var _ AdminService = (*AdminServiceImpl)(nil)

// DefaultFeedLimit caps the audit/history/notification feeds when the
// caller does not ask for a specific page size.
const DefaultFeedLimit = 20

// AdminService defines the business logic contract for moderation.
type AdminService interface {
	GetStats(ctx context.Context) (*types.AdminStats, error)
	ListPendingProfiles(ctx context.Context, statuses []types.ApprovalStatus) ([]types.Profile, error)
	ListPendingPhotos(ctx context.Context, statuses []types.ApprovalStatus) ([]types.ProfilePhoto, error)
	UpdateProfileStatus(ctx context.Context, adminID, userID string, status types.ApprovalStatus, reason *string) error
	ApprovePhotosBatch(ctx context.Context, adminID string, photoIDs []string) (int64, error)
	RejectPhotosBatch(ctx context.Context, adminID string, photoIDs []string, reason *string) (int64, error)
	GetAuditLog(ctx context.Context, limit int) ([]types.AuditEntry, error)
	GetProfileHistory(ctx context.Context, userID string, limit int) ([]types.ChangeLogEntry, error)
	GetNotifications(ctx context.Context, limit int) ([]types.AdminNotification, error)
}

// ProfileCacheInvalidator drops cached public views after a verdict
// changes what other members may see.
type ProfileCacheInvalidator interface {
	InvalidatePublicProfile(userID string)
}

// AdminServiceImpl provides the implementation for AdminService.
type AdminServiceImpl struct {
	logger *slog.Logger
	repo   AdminRepo
	cache  ProfileCacheInvalidator
}

// NewAdminService creates a new moderation service. cache may be nil.
func NewAdminService(repo AdminRepo, cache ProfileCacheInvalidator, logger *slog.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache,
	}
}

func (s *AdminServiceImpl) invalidate(userID string) {
	if s.cache != nil {
		s.cache.InvalidatePublicProfile(userID)
	}
}

// GetStats runs the five dashboard counts concurrently. Any failing
// count aborts the aggregate.
func (s *AdminServiceImpl) GetStats(ctx context.Context) (*types.AdminStats, error) {
	var stats types.AdminStats
	g, gCtx := errgroup.WithContext(ctx)

	// The pending counters use the same status set as the queues, so an
	// item moved to in_review stays in both.
	pending := types.PendingStatuses()
	approved := []types.ApprovalStatus{types.ApprovalStatusApproved}

	g.Go(func() error {
		n, err := s.repo.CountProfilesByStatuses(gCtx, pending)
		stats.PendingUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountProfilesByStatuses(gCtx, approved)
		stats.ApprovedUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPhotosByStatuses(gCtx, pending)
		stats.PendingPhotos = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPhotosByStatuses(gCtx, approved)
		stats.ApprovedPhotos = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountUsers(gCtx)
		stats.TotalUsers = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &stats, nil
}

func (s *AdminServiceImpl) ListPendingProfiles(ctx context.Context, statuses []types.ApprovalStatus) ([]types.Profile, error) {
	if len(statuses) == 0 {
		statuses = types.PendingStatuses()
	}
	return s.repo.ListProfilesByStatus(ctx, statuses)
}

func (s *AdminServiceImpl) ListPendingPhotos(ctx context.Context, statuses []types.ApprovalStatus) ([]types.ProfilePhoto, error) {
	if len(statuses) == 0 {
		statuses = types.PendingStatuses()
	}
	return s.repo.ListPhotosByStatus(ctx, statuses)
}

// audit appends the entry best-effort: a failure is logged and the
// mutation it describes stands.
func (s *AdminServiceImpl) audit(ctx context.Context, entry types.AuditEntry) {
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "Audit append failed, action already applied",
			slog.String("action", entry.Action), slog.Any("error", err))
	}
}

// UpdateProfileStatus records the verdict and audits it.
func (s *AdminServiceImpl) UpdateProfileStatus(ctx context.Context, adminID, userID string, status types.ApprovalStatus, reason *string) error {
	l := s.logger.With(slog.String("method", "UpdateProfileStatus"),
		slog.String("adminID", adminID), slog.String("userID", userID))

	if status != types.ApprovalStatusApproved && status != types.ApprovalStatusRejected && status != types.ApprovalStatusInReview {
		return fmt.Errorf("%w: invalid status %q", api.ErrValidation, status)
	}
	if status == types.ApprovalStatusRejected && (reason == nil || *reason == "") {
		return fmt.Errorf("%w: a rejection reason is required", api.ErrValidation)
	}

	if err := s.repo.UpdateProfileStatus(ctx, userID, status, reason, adminID); err != nil {
		l.ErrorContext(ctx, "Failed to update profile status", slog.Any("error", err))
		return err
	}
	s.invalidate(userID)
	metrics.Get().ModerationActionsTotal.Add(ctx, 1)

	adminUUID, _ := uuid.Parse(adminID)
	targetUUID, _ := uuid.Parse(userID)
	details := map[string]any{"status": string(status)}
	if reason != nil {
		details["reason"] = *reason
	}
	s.audit(ctx, types.AuditEntry{
		AdminID:      adminUUID,
		Action:       "profile_status_updated",
		TargetUserID: &targetUUID,
		Details:      details,
		CreatedAt:    time.Now(),
	})

	l.InfoContext(ctx, "Profile status updated", slog.String("status", string(status)))
	return nil
}

// ApprovePhotosBatch approves the id set in one update, then promotes
// any photo whose owner asked for it to become primary: set primary,
// demote the rest, sync the avatar. The three writes are sequential
// per photo, not transactional.
func (s *AdminServiceImpl) ApprovePhotosBatch(ctx context.Context, adminID string, photoIDs []string) (int64, error) {
	l := s.logger.With(slog.String("method", "ApprovePhotosBatch"), slog.String("adminID", adminID))

	if len(photoIDs) == 0 {
		return 0, fmt.Errorf("%w: no photo ids provided", api.ErrValidation)
	}

	updated, err := s.repo.UpdatePhotosStatus(ctx, photoIDs, types.ApprovalStatusApproved, nil, adminID)
	if err != nil {
		l.ErrorContext(ctx, "Batch approve failed", slog.Any("error", err))
		return 0, err
	}

	photos, err := s.repo.GetPhotosByIDs(ctx, photoIDs)
	if err != nil {
		l.WarnContext(ctx, "Could not load approved photos for primary promotion", slog.Any("error", err))
		photos = nil
	}
	for _, photo := range photos {
		s.invalidate(photo.UserID.String())
		if !photo.RequestedPrimary {
			continue
		}
		userID := photo.UserID.String()
		photoID := photo.ID.String()
		if err := s.repo.PromotePrimaryPhoto(ctx, userID, photoID); err != nil {
			l.WarnContext(ctx, "Primary promotion failed", slog.String("photoID", photoID), slog.Any("error", err))
			continue
		}
		if err := s.repo.DemoteOtherPhotos(ctx, userID, photoID); err != nil {
			l.WarnContext(ctx, "Demoting other photos failed", slog.String("photoID", photoID), slog.Any("error", err))
		}
		if err := s.repo.SyncAvatar(ctx, userID, photo.PhotoURL); err != nil {
			l.WarnContext(ctx, "Avatar sync failed", slog.String("photoID", photoID), slog.Any("error", err))
		}
	}

	metrics.Get().ModerationActionsTotal.Add(ctx, 1)
	adminUUID, _ := uuid.Parse(adminID)
	s.audit(ctx, types.AuditEntry{
		AdminID:   adminUUID,
		Action:    "photos_approved",
		Details:   map[string]any{"count": updated, "photo_ids": photoIDs},
		CreatedAt: time.Now(),
	})

	l.InfoContext(ctx, "Photos approved", slog.Int64("count", updated))
	return updated, nil
}

// RejectPhotosBatch rejects the id set in one update.
func (s *AdminServiceImpl) RejectPhotosBatch(ctx context.Context, adminID string, photoIDs []string, reason *string) (int64, error) {
	l := s.logger.With(slog.String("method", "RejectPhotosBatch"), slog.String("adminID", adminID))

	if len(photoIDs) == 0 {
		return 0, fmt.Errorf("%w: no photo ids provided", api.ErrValidation)
	}
	if reason == nil || *reason == "" {
		return 0, fmt.Errorf("%w: a rejection reason is required", api.ErrValidation)
	}

	updated, err := s.repo.UpdatePhotosStatus(ctx, photoIDs, types.ApprovalStatusRejected, reason, adminID)
	if err != nil {
		l.ErrorContext(ctx, "Batch reject failed", slog.Any("error", err))
		return 0, err
	}

	if photos, err := s.repo.GetPhotosByIDs(ctx, photoIDs); err == nil {
		for _, photo := range photos {
			s.invalidate(photo.UserID.String())
		}
	}

	metrics.Get().ModerationActionsTotal.Add(ctx, 1)
	adminUUID, _ := uuid.Parse(adminID)
	s.audit(ctx, types.AuditEntry{
		AdminID:   adminUUID,
		Action:    "photos_rejected",
		Details:   map[string]any{"count": updated, "photo_ids": photoIDs, "reason": *reason},
		CreatedAt: time.Now(),
	})

	l.InfoContext(ctx, "Photos rejected", slog.Int64("count", updated))
	return updated, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func (s *AdminServiceImpl) GetAuditLog(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	return s.repo.ListAudit(ctx, clampLimit(limit))
}

func (s *AdminServiceImpl) GetProfileHistory(ctx context.Context, userID string, limit int) ([]types.ChangeLogEntry, error) {
	return s.repo.ListProfileHistory(ctx, userID, clampLimit(limit))
}

func (s *AdminServiceImpl) GetNotifications(ctx context.Context, limit int) ([]types.AdminNotification, error) {
	return s.repo.ListNotifications(ctx, clampLimit(limit))
}
