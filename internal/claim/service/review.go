package service

import (
	"context"
	"errors"

	"photobook/internal/claim/models"
	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/platform/audit"
	"photobook/pkg/platform/sentinel"
	"photobook/pkg/requestcontext"
)

// ListClaimsForReview returns claims awaiting an administrator, oldest first.
func (s *Service) ListClaimsForReview(ctx context.Context) ([]*models.Claim, error) {
	claims, err := s.claims.ListByStatus(ctx, models.ClaimStatusPendingAdminReview)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// ApproveClaim approves a claim in review and transfers creator ownership.
func (s *Service) ApproveClaim(ctx context.Context, claimID id.ClaimID, adminID, note string) (*models.Claim, error) {
	return s.review(ctx, claimID, adminID, note, true)
}

// RejectClaim rejects a claim in review. Creator ownership is untouched.
func (s *Service) RejectClaim(ctx context.Context, claimID id.ClaimID, adminID, note string) (*models.Claim, error) {
	return s.review(ctx, claimID, adminID, note, false)
}

func (s *Service) review(ctx context.Context, claimID id.ClaimID, adminID, note string, approve bool) (*models.Claim, error) {
	req := models.ReviewRequest{Note: note}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if adminID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin ID required")
	}

	release, err := s.locker.Acquire(ctx, claimID.String(), s.lockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return nil, dErrors.New(dErrors.CodeConflict, "claim is being processed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to lock claim")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to release claim lock", "claim_id", claimID.String(), "error", err)
		}
	}()

	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimStatusPendingAdminReview {
		return nil, dErrors.New(dErrors.CodeConflict, "claim is not awaiting review")
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := claim.Review(approve, adminID, req.Note, now); err != nil {
			return err
		}
		if approve {
			if err := s.transferCreator(ctx, claim, now); err != nil {
				return err
			}
		}
		return s.claims.UpdateStatus(ctx, claim, models.ClaimStatusPendingAdminReview)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeConflict, "claim is not awaiting review")
		}
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save review")
	}

	if approve {
		s.recordReview("approved")
		s.incrementOwnershipTransferred()
		s.logAudit(ctx, audit.EventClaimReviewApproved, claim, "admin_id", adminID, "decision", "approved")
		s.logAudit(ctx, audit.EventOwnershipTransferred, claim, "admin_id", adminID, "decision", "admin_approved")
	} else {
		s.recordReview("rejected")
		s.logAudit(ctx, audit.EventClaimReviewRejected, claim, "admin_id", adminID, "decision", "rejected", "reason", req.Note)
	}
	return claim, nil
}
