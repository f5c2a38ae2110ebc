package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/FACorreiaa/go-couple-connect/app/observability/metrics"
	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Ensure implementations satisfy the interfaces
var (
	_ NotifyService = (*NotifyServiceImpl)(nil)
	_ EmailSender   = (*ResendSender)(nil)
)

const (
	// maxErrorMessageLen caps what gets stored in error_message.
	maxErrorMessageLen = 500

	minBatchSize = 1
	maxBatchSize = 100
)

// EmailSender delivers one rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendSender delivers email through the Resend HTTP API.
type ResendSender struct {
	client *resty.Client
	from   string
}

func NewResendSender(cfg config.NotificationsConfig) *ResendSender {
	client := resty.New().
		SetBaseURL(cfg.ResendBaseURL).
		SetAuthToken(cfg.ResendAPIKey).
		SetHeader("Content-Type", "application/json")
	return &ResendSender{
		client: client,
		from:   cfg.EmailFrom,
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(resendPayload{
			From:    s.from,
			To:      []string{to},
			Subject: subject,
			HTML:    html,
		}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("resend returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}

// ProcessSummary reports one drain pass over the queue.
type ProcessSummary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// NotifyService drains the admin notification queue.
type NotifyService interface {
	ProcessPending(ctx context.Context, batchSize int) (*ProcessSummary, error)
}

// NotifyServiceImpl provides the implementation for NotifyService.
type NotifyServiceImpl struct {
	logger *slog.Logger
	repo   NotifyRepo
	sender EmailSender
	cfg    config.NotificationsConfig
}

func NewNotifyService(repo NotifyRepo, sender EmailSender, cfg config.NotificationsConfig, logger *slog.Logger) *NotifyServiceImpl {
	return &NotifyServiceImpl{
		logger: logger,
		repo:   repo,
		sender: sender,
		cfg:    cfg,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (s *NotifyServiceImpl) clampBatch(batchSize int) int {
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}
	if batchSize < minBatchSize {
		return minBatchSize
	}
	if batchSize > maxBatchSize {
		return maxBatchSize
	}
	return batchSize
}

// render picks the subject and body for one queued alert.
func (s *NotifyServiceImpl) render(n types.AdminNotification) (subject, html string) {
	switch n.Type {
	case types.NotificationPhotoPending:
		subject = "New photo awaiting review"
		html = "<p>A member uploaded a photo that needs moderation.</p>"
	default:
		subject = "New profile awaiting review"
		html = "<p>A member profile is waiting for moderation.</p>"
	}
	if n.TargetUserID != nil {
		html += fmt.Sprintf("<p>Member: %s</p>", n.TargetUserID)
	}
	if s.cfg.DashboardURL != "" {
		html += fmt.Sprintf(`<p><a href="%s">Open the moderation dashboard</a></p>`, s.cfg.DashboardURL)
	}
	return subject, html
}

// ProcessPending drains up to batchSize queued rows, oldest first.
// Each row is marked sent or error individually; one bad email never
// blocks the rest of the batch.
func (s *NotifyServiceImpl) ProcessPending(ctx context.Context, batchSize int) (*ProcessSummary, error) {
	l := s.logger.With(slog.String("method", "ProcessPending"))

	batch := s.clampBatch(batchSize)
	pending, err := s.repo.ListPending(ctx, batch)
	if err != nil {
		return nil, err
	}

	summary := &ProcessSummary{Processed: len(pending)}
	for _, n := range pending {
		subject, html := s.render(n)
		if err := s.sender.Send(ctx, s.cfg.AdminEmail, subject, html); err != nil {
			summary.Failed++
			l.WarnContext(ctx, "Notification email failed", slog.String("id", n.ID.String()), slog.Any("error", err))
			if markErr := s.repo.MarkError(ctx, n.ID.String(), truncate(err.Error(), maxErrorMessageLen)); markErr != nil {
				l.ErrorContext(ctx, "Failed to mark notification error", slog.Any("error", markErr))
			}
			continue
		}
		summary.Sent++
		if err := s.repo.MarkSent(ctx, n.ID.String()); err != nil {
			l.ErrorContext(ctx, "Failed to mark notification sent", slog.Any("error", err))
		}
	}

	if summary.Processed > 0 {
		metrics.Get().NotificationEmailsTotal.Add(ctx, int64(summary.Processed))
		l.InfoContext(ctx, "Notification batch processed",
			slog.Int("processed", summary.Processed),
			slog.Int("sent", summary.Sent),
			slog.Int("failed", summary.Failed))
	}
	return summary, nil
}
