package audit

import (
	"time"

	id "photobook/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers ownership changes that must be retained.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected or suspicious claim activity.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine workflow steps.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// Subject is the claim the event is about.
	Subject   string
	CreatorID string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is the admin acting on a claimant's behalf, when different from UserID.
	ActorID string
	Device  string
}

type AuditEvent string

const (
	EventClaimRequested          AuditEvent = "claim_requested"
	EventClaimDeleted            AuditEvent = "claim_deleted"
	EventClaimVerified           AuditEvent = "claim_verified"
	EventClaimSentToReview       AuditEvent = "claim_sent_to_review"
	EventClaimExpired            AuditEvent = "claim_expired"
	EventClaimVerificationFailed AuditEvent = "claim_verification_failed"
	EventClaimReviewApproved     AuditEvent = "claim_review_approved"
	EventClaimReviewRejected     AuditEvent = "claim_review_rejected"
	EventNotificationFailed      AuditEvent = "claim_notification_failed"
	EventOwnershipTransferred    AuditEvent = "creator_ownership_transferred"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventOwnershipTransferred: CategoryCompliance,
	EventClaimVerified:        CategoryCompliance,
	EventClaimReviewApproved:  CategoryCompliance,
	EventClaimReviewRejected:  CategoryCompliance,

	EventClaimVerificationFailed: CategorySecurity,
	EventClaimExpired:            CategorySecurity,

	EventClaimRequested:     CategoryOperations,
	EventClaimDeleted:       CategoryOperations,
	EventClaimSentToReview:  CategoryOperations,
	EventNotificationFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
