// Package notify delivers "verify your claim" notifications to the email
// sender. Delivery must report failure so the caller can roll the claim back.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Notification is the payload the email sender renders.
type Notification struct {
	ClaimID          string    `json:"claim_id"`
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	RecipientName    string    `json:"recipient_name,omitempty"`
	CreatorName      string    `json:"creator_name"`
	VerificationCode string    `json:"verification_code"`
	VerificationURL  string    `json:"verification_url,omitempty"`
	VerifyLink       string    `json:"verify_link"`
	MetaTag          string    `json:"meta_tag"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// LogNotifier writes notifications to the log. Used when no broker is
// configured so local setups can copy the link from the output.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyClaimCreated(ctx context.Context, msg Notification) error {
	n.logger.InfoContext(ctx, "claim verification notification",
		"claim_id", msg.ClaimID,
		"email", msg.Email,
		"verify_link", msg.VerifyLink,
		"meta_tag", msg.MetaTag,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}
