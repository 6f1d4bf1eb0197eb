package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"

	"github.com/google/uuid"

	"crm-backend/internal/config"
	"crm-backend/internal/domains/importer/model"
	"crm-backend/internal/domains/importer/service"
	"crm-backend/pkg/database"
)

// SMTPNotifier emails import lifecycle notifications to the import owner.
// Delivery is best effort: callers log failures and never fail the pipeline
// on them.
type SMTPNotifier struct {
	smtpAddr string
	from     string
	db       database.Querier
}

func NewSMTPNotifier(cfg config.SMTPConfig, db database.Querier) service.Notifier {
	return &SMTPNotifier{
		smtpAddr: cfg.Host + ":" + cfg.Port,
		from:     cfg.From,
		db:       db,
	}
}

func (n *SMTPNotifier) recipient(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := n.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		return "", fmt.Errorf("failed to resolve recipient: %w", err)
	}
	return email, nil
}

func (n *SMTPNotifier) send(ctx context.Context, userID uuid.UUID, subject, body string) error {
	to, err := n.recipient(ctx, userID)
	if err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, to, subject, body))

	if err := smtp.SendMail(n.smtpAddr, nil, n.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) NotifyAnalysisComplete(ctx context.Context, imp *model.Import, impact *model.AnalysisImpact) error {
	summary, _ := json.MarshalIndent(impact, "", "  ")
	body := fmt.Sprintf(`Hello,

The analysis of your import %q is complete.

%s

Please confirm the import to apply these changes, or cancel it.`,
		imp.OriginalFilename, summary)

	return n.send(ctx, imp.UserID, "Import analysis complete", body)
}

func (n *SMTPNotifier) NotifyProcessingComplete(ctx context.Context, imp *model.Import) error {
	body := fmt.Sprintf(`Hello,

Your import %q has finished.

Processed rows: %d
Successful rows: %d
Rows in error: %d`,
		imp.OriginalFilename, imp.ProcessedRows, imp.SuccessRows, imp.ErrorRows)

	return n.send(ctx, imp.UserID, "Import finished", body)
}

func (n *SMTPNotifier) NotifyFailure(ctx context.Context, imp *model.Import, reason string) error {
	body := fmt.Sprintf(`Hello,

Your import %q failed and no data was applied beyond the batches already
committed.

Reason: %s`,
		imp.OriginalFilename, reason)

	return n.send(ctx, imp.UserID, "Import failed", body)
}

func (n *SMTPNotifier) NotifyCancellation(ctx context.Context, imp *model.Import) error {
	body := fmt.Sprintf(`Hello,

Your import %q was cancelled. The uploaded file has been removed.`,
		imp.OriginalFilename)

	return n.send(ctx, imp.UserID, "Import cancelled", body)
}
