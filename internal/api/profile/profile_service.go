package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-couple-connect/app/observability/metrics"
	"github.com/FACorreiaa/go-couple-connect/internal/api"
	"github.com/FACorreiaa/go-couple-connect/internal/app/storage"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Ensure implementation satisfies the interface
var _ ProfileService = (*ProfileServiceImpl)(nil)

// MaxPhotoUploadBytes caps uploads at 5MB, checked before any storage
// or database call is made.
const MaxPhotoUploadBytes = 5 * 1024 * 1024

// ProfileService defines the business logic contract for member
// profiles and photo galleries.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	GetProfileWithPhotos(ctx context.Context, userID string) (*types.ProfileWithPhotos, error)
	GetPublicProfile(ctx context.Context, userID string) (*types.ProfileWithPhotos, error)
	UpdateProfile(ctx context.Context, userID string, params types.UpdateProfileParams) (*types.Profile, error)
	UploadPhoto(ctx context.Context, userID, filename, contentType string, size int64, body io.Reader, setPrimary bool) (*types.ProfilePhoto, error)
	SetPrimaryPhoto(ctx context.Context, userID, photoID string) error
	DeletePhoto(ctx context.Context, userID, photoID string) error
	MarkLastSeen(ctx context.Context, userID string) error
	InvalidatePublicProfile(userID string)
}

// ProfileServiceImpl provides the implementation for ProfileService.
type ProfileServiceImpl struct {
	logger *slog.Logger
	repo   ProfileRepo
	photos storage.PhotoStore

	// publicCache holds assembled public profile views for a short
	// window; any mutation for the user drops the entry.
	publicCache *cache.Cache
}

func NewProfileService(repo ProfileRepo, photos storage.PhotoStore, logger *slog.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{
		logger:      logger,
		repo:        repo,
		photos:      photos,
		publicCache: cache.New(2*time.Minute, 5*time.Minute),
	}
}

// CalculateAge returns whole years between birthDate and now, both
// normalized to UTC. Turning 18 today yields 18; one day short yields
// 17.
func CalculateAge(birthDate, now time.Time) int {
	b := birthDate.UTC()
	n := now.UTC()
	age := n.Year() - b.Year()
	anniversary := time.Date(b.Year()+age, b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	if n.Before(anniversary) {
		age--
	}
	return age
}

func (s *ProfileServiceImpl) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// GetProfileWithPhotos returns the owner's view: the full gallery
// regardless of approval state, primary first then newest first.
func (s *ProfileServiceImpl) GetProfileWithPhotos(ctx context.Context, userID string) (*types.ProfileWithPhotos, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	photos, err := s.repo.GetPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &types.ProfileWithPhotos{Profile: p, Photos: photos}, nil
}

func publicProfileKey(userID string) string { return "public:" + userID }

// GetPublicProfile returns the member-facing view: approved profiles
// only, approved photos only. Views are cached briefly.
func (s *ProfileServiceImpl) GetPublicProfile(ctx context.Context, userID string) (*types.ProfileWithPhotos, error) {
	if cached, found := s.publicCache.Get(publicProfileKey(userID)); found {
		if view, ok := cached.(*types.ProfileWithPhotos); ok {
			return view, nil
		}
	}

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.ApprovalStatus != types.ApprovalStatusApproved {
		return nil, api.ErrNotFound
	}
	photos, err := s.repo.GetApprovedPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &types.ProfileWithPhotos{Profile: p, Photos: photos}
	s.publicCache.SetDefault(publicProfileKey(userID), view)
	return view, nil
}

// InvalidatePublicProfile drops the cached public view. Called here on
// every mutation and by the moderation service after status changes.
func (s *ProfileServiceImpl) InvalidatePublicProfile(userID string) {
	s.publicCache.Delete(publicProfileKey(userID))
}

// UpdateProfile applies a partial update after validating the birth
// date keeps the member at least 18, then appends per-field history
// rows. History failures are logged, never surfaced.
func (s *ProfileServiceImpl) UpdateProfile(ctx context.Context, userID string, params types.UpdateProfileParams) (*types.Profile, error) {
	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID))

	if params.BirthDate != nil && CalculateAge(*params.BirthDate, time.Now()) < 18 {
		return nil, fmt.Errorf("%w: you must be at least 18 years old", api.ErrValidation)
	}

	before, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, params); err != nil {
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		return nil, err
	}
	s.InvalidatePublicProfile(userID)

	changes := diffProfile(before, params)
	if err := s.repo.RecordProfileChanges(ctx, userID, userID, changes); err != nil {
		l.WarnContext(ctx, "Failed to record profile history", slog.Any("error", err))
	}

	return s.repo.GetProfile(ctx, userID)
}

// UploadPhoto stores the image and inserts a pending gallery row. The
// size cap is enforced before the object store or database is touched.
// The object key is <userID>/<uuid><ext>.
func (s *ProfileServiceImpl) UploadPhoto(ctx context.Context, userID, filename, contentType string, size int64, body io.Reader, setPrimary bool) (*types.ProfilePhoto, error) {
	l := s.logger.With(slog.String("method", "UploadPhoto"), slog.String("userID", userID))

	if size > MaxPhotoUploadBytes {
		return nil, fmt.Errorf("%w: photo is too large (max 5MB)", api.ErrValidation)
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), ext)

	photoURL, err := s.photos.Upload(ctx, key, contentType, body)
	if err != nil {
		l.ErrorContext(ctx, "Photo upload to storage failed", slog.Any("error", err))
		return nil, fmt.Errorf("upload photo: storage write failed: %w", err)
	}

	photo, err := s.repo.InsertPhoto(ctx, userID, photoURL, key, setPrimary)
	if err != nil {
		l.ErrorContext(ctx, "Photo row insert failed", slog.Any("error", err))
		return nil, err
	}

	if setPrimary {
		if err := s.promotePrimary(ctx, userID, photo.ID.String()); err != nil {
			l.WarnContext(ctx, "Failed to promote uploaded photo to primary", slog.Any("error", err))
		} else {
			photo.IsPrimary = true
		}
	}

	metrics.Get().PhotoUploadsTotal.Add(ctx, 1)
	s.InvalidatePublicProfile(userID)
	l.InfoContext(ctx, "Photo uploaded", slog.String("photoID", photo.ID.String()))
	return photo, nil
}

// promotePrimary runs the set-then-unset-others sequence. The two
// writes are sequential, not transactional; running it repeatedly
// always converges on exactly one primary.
func (s *ProfileServiceImpl) promotePrimary(ctx context.Context, userID, photoID string) error {
	if err := s.repo.SetPrimaryPhoto(ctx, userID, photoID); err != nil {
		return err
	}
	return s.repo.UnsetOtherPrimaryPhotos(ctx, userID, photoID)
}

// SetPrimaryPhoto promotes a photo the caller owns.
func (s *ProfileServiceImpl) SetPrimaryPhoto(ctx context.Context, userID, photoID string) error {
	if err := s.promotePrimary(ctx, userID, photoID); err != nil {
		return err
	}
	s.InvalidatePublicProfile(userID)
	return nil
}

// DeletePhoto removes the row first, then the stored object. A failed
// object delete leaves an orphan in the bucket and is only logged.
func (s *ProfileServiceImpl) DeletePhoto(ctx context.Context, userID, photoID string) error {
	l := s.logger.With(slog.String("method", "DeletePhoto"), slog.String("userID", userID))

	photo, err := s.repo.GetPhoto(ctx, userID, photoID)
	if err != nil {
		return err
	}

	if err := s.repo.DeletePhoto(ctx, userID, photoID); err != nil {
		return err
	}
	s.InvalidatePublicProfile(userID)

	if err := s.photos.Delete(ctx, photo.StorageKey); err != nil {
		l.WarnContext(ctx, "Failed to delete stored object", slog.String("key", photo.StorageKey), slog.Any("error", err))
	}
	return nil
}

func (s *ProfileServiceImpl) MarkLastSeen(ctx context.Context, userID string) error {
	return s.repo.MarkLastSeen(ctx, userID)
}

// diffProfile turns the provided params into history rows, skipping
// fields whose value did not actually change.
func diffProfile(before *types.Profile, params types.UpdateProfileParams) []FieldChange {
	var changes []FieldChange

	addStr := func(field string, oldVal *string, newVal *string) {
		if newVal == nil {
			return
		}
		if oldVal != nil && *oldVal == *newVal {
			return
		}
		changes = append(changes, FieldChange{Field: field, OldValue: oldVal, NewValue: newVal})
	}
	addInt := func(field string, oldVal *int, newVal *int) {
		if newVal == nil {
			return
		}
		if oldVal != nil && *oldVal == *newVal {
			return
		}
		var o *string
		if oldVal != nil {
			v := strconv.Itoa(*oldVal)
			o = &v
		}
		n := strconv.Itoa(*newVal)
		addStr(field, o, &n)
	}

	addStr("username", before.Username, params.Username)
	addStr("city", before.City, params.City)
	addStr("bio", before.Bio, params.Bio)
	addInt("height_cm", before.HeightCm, params.HeightCm)
	addInt("weight_kg", before.WeightKg, params.WeightKg)

	if params.Gender != nil {
		var o *string
		if before.Gender != nil {
			v := string(*before.Gender)
			o = &v
		}
		n := string(*params.Gender)
		addStr("gender", o, &n)
	}
	if params.BirthDate != nil {
		var o *string
		if before.BirthDate != nil {
			v := before.BirthDate.UTC().Format("2006-01-02")
			o = &v
		}
		n := params.BirthDate.UTC().Format("2006-01-02")
		addStr("birth_date", o, &n)
	}
	if params.LookingFor != nil {
		o := strings.Join(before.LookingFor, ",")
		n := strings.Join(params.LookingFor, ",")
		if o != n {
			changes = append(changes, FieldChange{Field: "looking_for", OldValue: &o, NewValue: &n})
		}
	}
	if params.Fetishes != nil {
		o := strings.Join(before.Fetishes, ",")
		n := strings.Join(params.Fetishes, ",")
		if o != n {
			changes = append(changes, FieldChange{Field: "fetishes", OldValue: &o, NewValue: &n})
		}
	}
	return changes
}
