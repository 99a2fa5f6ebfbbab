package models

import (
	"time"

	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimStatusPending            ClaimStatus = "pending"
	ClaimStatusApproved           ClaimStatus = "approved"
	ClaimStatusPendingAdminReview ClaimStatus = "pending_admin_review"
	ClaimStatusRejected           ClaimStatus = "rejected"
	ClaimStatusFailed             ClaimStatus = "failed"
)

// claimTransitions lists every allowed forward move. Terminal states have no
// entry, so nothing ever returns to pending.
var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusPending: {
		ClaimStatusApproved,
		ClaimStatusPendingAdminReview,
		ClaimStatusRejected,
		ClaimStatusFailed,
	},
	ClaimStatusPendingAdminReview: {
		ClaimStatusApproved,
		ClaimStatusRejected,
	},
}

func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusPendingAdminReview,
		ClaimStatusRejected, ClaimStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ClaimStatus) IsTerminal() bool {
	return len(claimTransitions[s]) == 0
}

func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// VerificationMethod is how a claimant proves control of the creator.
type VerificationMethod string

const (
	VerificationMethodWebsite   VerificationMethod = "website"
	VerificationMethodInstagram VerificationMethod = "instagram"
)

func (m VerificationMethod) IsValid() bool {
	return m == VerificationMethodWebsite || m == VerificationMethodInstagram
}

// Claim is a user's request to take ownership of a stub creator.
//
// Invariants:
//   - VerificationCode and CodeExpiresAt are set at construction and never change
//   - Status only moves forward along claimTransitions
//   - VerifiedAt is set exactly when the claim becomes approved
type Claim struct {
	ID                 id.ClaimID         `json:"id"`
	CreatorID          id.CreatorID       `json:"creator_id"`
	UserID             id.UserID          `json:"user_id"`
	Status             ClaimStatus        `json:"status"`
	VerificationMethod VerificationMethod `json:"verification_method"`
	VerificationURL    *string            `json:"verification_url,omitempty"`
	VerificationCode   string             `json:"-"`
	CodeExpiresAt      time.Time          `json:"code_expires_at"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	RequestedAt        time.Time          `json:"requested_at"`
	ReviewedAt         *time.Time         `json:"reviewed_at,omitempty"`
	ReviewedBy         string             `json:"reviewed_by,omitempty"`
	ReviewNote         string             `json:"review_note,omitempty"`
}

// NewClaim builds a pending claim, validating construction invariants.
func NewClaim(
	claimID id.ClaimID,
	creatorID id.CreatorID,
	userID id.UserID,
	method VerificationMethod,
	verificationURL *string,
	verificationCode string,
	codeExpiresAt time.Time,
	now time.Time,
) (*Claim, error) {
	if claimID.IsNil() || creatorID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claim, creator and user IDs are required")
	}
	if !method.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown verification method")
	}
	if verificationCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification code is required")
	}
	if !codeExpiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "code expiry must be in the future")
	}
	return &Claim{
		ID:                 claimID,
		CreatorID:          creatorID,
		UserID:             userID,
		Status:             ClaimStatusPending,
		VerificationMethod: method,
		VerificationURL:    verificationURL,
		VerificationCode:   verificationCode,
		CodeExpiresAt:      codeExpiresAt,
		RequestedAt:        now,
	}, nil
}

func (c *Claim) IsPending() bool {
	return c.Status == ClaimStatusPending
}

// IsExpired reports whether the code is past its expiry at now.
func (c *Claim) IsExpired(now time.Time) bool {
	return now.After(c.CodeExpiresAt)
}

// HasWebsiteTarget reports whether the claim can be checked against a website.
func (c *Claim) HasWebsiteTarget() bool {
	return c.VerificationMethod == VerificationMethodWebsite &&
		c.VerificationURL != nil && *c.VerificationURL != ""
}

func (c *Claim) transition(next ClaimStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"claim cannot move from "+string(c.Status)+" to "+string(next))
	}
	c.Status = next
	return nil
}

// Expire rejects a pending claim whose code has run out.
func (c *Claim) Expire() error {
	if !c.IsPending() {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending claims can expire")
	}
	return c.transition(ClaimStatusRejected)
}

// Approve marks the claim verified at now.
func (c *Claim) Approve(now time.Time) error {
	if err := c.transition(ClaimStatusApproved); err != nil {
		return err
	}
	c.VerifiedAt = &now
	return nil
}

// SendToReview parks a website-verified claim for an administrator.
func (c *Claim) SendToReview() error {
	if !c.IsPending() {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending claims can be sent to review")
	}
	return c.transition(ClaimStatusPendingAdminReview)
}

// Review records an administrator decision on a claim awaiting review.
func (c *Claim) Review(approve bool, adminID, note string, now time.Time) error {
	if c.Status != ClaimStatusPendingAdminReview {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim is not awaiting review")
	}
	if approve {
		if err := c.Approve(now); err != nil {
			return err
		}
	} else if err := c.transition(ClaimStatusRejected); err != nil {
		return err
	}
	c.ReviewedAt = &now
	c.ReviewedBy = adminID
	c.ReviewNote = note
	return nil
}
