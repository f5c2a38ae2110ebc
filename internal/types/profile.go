package types

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- ENUM Types ---

// ApprovalStatus represents the DB ENUM 'approval_status_enum' used for
// moderation of both profiles and photos.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"   // Awaiting first review
	ApprovalStatusInReview ApprovalStatus = "in_review" // Picked up by a moderator
	ApprovalStatusApproved ApprovalStatus = "approved"  // Visible to other members
	ApprovalStatusRejected ApprovalStatus = "rejected"  // Hidden, reason recorded
)

// Scan implements the sql.Scanner interface for ApprovalStatus.
func (s *ApprovalStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte) // Sometimes comes as bytes
		if !ok {
			return fmt.Errorf("failed to scan ApprovalStatus: expected string or []byte, got %T", value)
		}
		strVal = string(bytesVal)
	}
	switch ApprovalStatus(strVal) {
	case ApprovalStatusPending, ApprovalStatusInReview, ApprovalStatusApproved, ApprovalStatusRejected:
		*s = ApprovalStatus(strVal)
		return nil
	default:
		return fmt.Errorf("unknown ApprovalStatus value: %s", strVal)
	}
}

// Value implements the driver.Valuer interface for ApprovalStatus.
func (s ApprovalStatus) Value() (driver.Value, error) {
	switch s {
	case ApprovalStatusPending, ApprovalStatusInReview, ApprovalStatusApproved, ApprovalStatusRejected:
		return string(s), nil
	default:
		return nil, fmt.Errorf("invalid ApprovalStatus value: %s", s)
	}
}

// PendingStatuses is the filter set used by the moderation queues.
func PendingStatuses() []ApprovalStatus {
	return []ApprovalStatus{ApprovalStatusPending, ApprovalStatusInReview}
}

// Gender represents the DB ENUM 'gender_enum'.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderCouple Gender = "couple" // Shared account for a couple
)

// Scan implements the sql.Scanner interface for Gender.
func (g *Gender) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan Gender: expected string or []byte, got %T", value)
		}
		strVal = string(bytesVal)
	}
	switch Gender(strVal) {
	case GenderMale, GenderFemale, GenderCouple:
		*g = Gender(strVal)
		return nil
	default:
		return fmt.Errorf("unknown Gender value: %s", strVal)
	}
}

// Value implements the driver.Valuer interface for Gender.
func (g Gender) Value() (driver.Value, error) {
	switch g {
	case GenderMale, GenderFemale, GenderCouple:
		return string(g), nil
	default:
		return nil, fmt.Errorf("invalid Gender value: %s", g)
	}
}

// --- Profile ---

// Profile is the member-facing record keyed by the owning user's ID.
type Profile struct {
	ID              uuid.UUID      `json:"id"`
	Username        *string        `json:"username,omitempty"`
	City            *string        `json:"city,omitempty"`
	Gender          *Gender        `json:"gender,omitempty"`
	BirthDate       *time.Time     `json:"birth_date,omitempty"`
	LookingFor      []string       `json:"looking_for,omitempty"`
	Fetishes        []string       `json:"fetishes,omitempty"`
	Bio             *string        `json:"bio,omitempty"`
	AvatarURL       *string        `json:"avatar_url,omitempty"`
	HeightCm        *int           `json:"height_cm,omitempty"`
	WeightKg        *int           `json:"weight_kg,omitempty"`
	IsVerified18    bool           `json:"is_verified_18_plus"`
	IsOnline        bool           `json:"is_online"`
	LastSeenAt      *time.Time     `json:"last_seen_at,omitempty"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	ApprovedBy      *uuid.UUID     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// UpdateProfileParams defines the fields allowed for profile updates.
// Pointers distinguish "not provided" from zero values for partial updates.
type UpdateProfileParams struct {
	Username   *string    `json:"username,omitempty"`
	City       *string    `json:"city,omitempty"`
	Gender     *Gender    `json:"gender,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	LookingFor []string   `json:"looking_for,omitempty"`
	Fetishes   []string   `json:"fetishes,omitempty"`
	Bio        *string    `json:"bio,omitempty"`
	HeightCm   *int       `json:"height_cm,omitempty"`
	WeightKg   *int       `json:"weight_kg,omitempty"`
}

// --- Photos ---

// ProfilePhoto is one gallery image, foreign-keyed to its owner.
// Exactly one photo per user should carry IsPrimary once any photo is
// approved; the promotion sequence is not transactional, see the admin
// service.
type ProfilePhoto struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"user_id"`
	PhotoURL         string         `json:"photo_url"`
	StorageKey       string         `json:"-"` // Object key inside the bucket, not exposed
	IsPrimary        bool           `json:"is_primary"`
	RequestedPrimary bool           `json:"requested_primary"`
	ApprovalStatus   ApprovalStatus `json:"approval_status"`
	RejectionReason  *string        `json:"rejection_reason,omitempty"`
	ApprovedBy       *uuid.UUID     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	RejectedAt       *time.Time     `json:"rejected_at,omitempty"`
	UploadedAt       time.Time      `json:"uploaded_at"`
}

// ProfileWithPhotos bundles a profile with its gallery, ordered
// primary-first then newest-first.
type ProfileWithPhotos struct {
	Profile *Profile       `json:"profile"`
	Photos  []ProfilePhoto `json:"photos"`
}

// MemberSummary is the trimmed card shown on the members dashboard.
type MemberSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  *string   `json:"username,omitempty"`
	Age       *int      `json:"age,omitempty"`
	City      *string   `json:"city,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	IsOnline  bool      `json:"is_online"`
}
