package member

import (
	"context"
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-couple-connect/internal/api/profile"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Ensure implementation satisfies the interface
var _ MemberService = (*MemberServiceImpl)(nil)

// DefaultListLimit caps the dashboard listing.
const DefaultListLimit = 50

// PublicProfileViewer is the slice of the profile service the public
// profile page needs.
type PublicProfileViewer interface {
	GetPublicProfile(ctx context.Context, userID string) (*types.ProfileWithPhotos, error)
}

// MemberService defines the business logic contract for member
// discovery pages.
type MemberService interface {
	ListMembers(ctx context.Context, limit int) ([]types.MemberSummary, error)
	GetPublicProfile(ctx context.Context, userID string) (*types.ProfileWithPhotos, error)
}

// MemberServiceImpl provides the implementation for MemberService.
type MemberServiceImpl struct {
	logger   *slog.Logger
	repo     MemberRepo
	profiles PublicProfileViewer
}

func NewMemberService(repo MemberRepo, profiles PublicProfileViewer, logger *slog.Logger) *MemberServiceImpl {
	return &MemberServiceImpl{
		logger:   logger,
		repo:     repo,
		profiles: profiles,
	}
}

// ListMembers returns dashboard cards for approved members. Birth
// dates never leave the service; only derived ages do.
func (s *MemberServiceImpl) ListMembers(ctx context.Context, limit int) ([]types.MemberSummary, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	rows, err := s.repo.ListApproved(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]types.MemberSummary, 0, len(rows))
	for _, row := range rows {
		summary := types.MemberSummary{
			ID:        row.ID,
			Username:  row.Username,
			City:      row.City,
			AvatarURL: row.AvatarURL,
			IsOnline:  row.IsOnline,
		}
		if row.BirthDate != nil {
			age := profile.CalculateAge(*row.BirthDate, now)
			summary.Age = &age
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetPublicProfile serves another member's page: approved profile,
// approved photos, primary first.
func (s *MemberServiceImpl) GetPublicProfile(ctx context.Context, userID string) (*types.ProfileWithPhotos, error) {
	return s.profiles.GetPublicProfile(ctx, userID)
}
