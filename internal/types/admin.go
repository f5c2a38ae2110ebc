package types

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdminStats aggregates the moderation dashboard counters. All five
// counts are fetched together; a failure of any one aborts the whole
// aggregate.
type AdminStats struct {
	PendingUsers   int64 `json:"pending_users"`
	ApprovedUsers  int64 `json:"approved_users"`
	PendingPhotos  int64 `json:"pending_photos"`
	ApprovedPhotos int64 `json:"approved_photos"`
	TotalUsers     int64 `json:"total_users"`
}

// AuditEntry is an append-only record of an admin action. Written
// best-effort after the mutation it describes, never rolled back.
type AuditEntry struct {
	ID            uuid.UUID      `json:"id"`
	AdminID       uuid.UUID      `json:"admin_id"`
	Action        string         `json:"action"`
	TargetUserID  *uuid.UUID     `json:"target_user_id,omitempty"`
	TargetPhotoID *uuid.UUID     `json:"target_photo_id,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ChangeLogEntry mirrors the profile_change_log trigger output.
type ChangeLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Field     string         `json:"field"`
	OldValue  *string        `json:"old_value,omitempty"`
	NewValue  *string        `json:"new_value,omitempty"`
	ChangedBy *uuid.UUID     `json:"changed_by,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	ChangedAt time.Time      `json:"changed_at"`
}

// NotificationType represents the DB ENUM 'notification_type_enum'.
type NotificationType string

const (
	NotificationProfilePending NotificationType = "profile_pending"
	NotificationPhotoPending   NotificationType = "photo_pending"
)

// NotificationStatus represents the DB ENUM 'notification_status_enum'.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusError   NotificationStatus = "error"
)

// Scan implements the sql.Scanner interface for NotificationStatus.
func (s *NotificationStatus) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		bytesVal, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("failed to scan NotificationStatus: expected string or []byte, got %T", value)
		}
		strVal = string(bytesVal)
	}
	switch NotificationStatus(strVal) {
	case NotificationStatusPending, NotificationStatusSent, NotificationStatusError:
		*s = NotificationStatus(strVal)
		return nil
	default:
		return fmt.Errorf("unknown NotificationStatus value: %s", strVal)
	}
}

// Value implements the driver.Valuer interface for NotificationStatus.
func (s NotificationStatus) Value() (driver.Value, error) {
	switch s {
	case NotificationStatusPending, NotificationStatusSent, NotificationStatusError:
		return string(s), nil
	default:
		return nil, fmt.Errorf("invalid NotificationStatus value: %s", s)
	}
}

// AdminNotification is a queued email alert about pending moderation
// work. Rows are written by DB triggers and drained by the notify
// worker.
type AdminNotification struct {
	ID            uuid.UUID          `json:"id"`
	Type          NotificationType   `json:"type"`
	TargetUserID  *uuid.UUID         `json:"target_user_id,omitempty"`
	TargetPhotoID *uuid.UUID         `json:"target_photo_id,omitempty"`
	Status        NotificationStatus `json:"status"`
	ErrorMessage  *string            `json:"error_message,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
