package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"photobook/internal/claim/models"
	"photobook/internal/claim/website"
	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/email"
	"photobook/pkg/platform/audit"
	"photobook/pkg/platform/sentinel"
	"photobook/pkg/requestcontext"
)

// VerifyLink validates a signed verification link and verifies its claim.
func (s *Service) VerifyLink(ctx context.Context, token string) (models.Outcome, error) {
	claimID, err := s.links.Parse(ctx, token)
	if err != nil {
		return models.Outcome{}, err
	}
	return s.VerifyClaim(ctx, claimID)
}

// VerifyClaim runs the verification state machine for one claim. Verification
// failures are returned as Outcome values; the error is reserved for
// infrastructure problems and lock contention.
func (s *Service) VerifyClaim(ctx context.Context, claimID id.ClaimID) (models.Outcome, error) {
	defer s.observeVerifyClaim(time.Now())
	ctx, span := tracer.Start(ctx, "claim.VerifyClaim")
	defer span.End()
	span.SetAttributes(attribute.String("claim.id", claimID.String()))

	release, err := s.locker.Acquire(ctx, claimID.String(), s.lockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return models.Outcome{}, dErrors.New(dErrors.CodeConflict, "verification already in progress")
		}
		return models.Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to lock claim")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to release claim lock", "claim_id", claimID.String(), "error", err)
		}
	}()

	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return models.Outcome{}, err
	}

	outcome, err := s.verify(ctx, claim)
	if err != nil {
		return models.Outcome{}, err
	}
	span.SetAttributes(attribute.String("claim.outcome", string(outcome.Kind)))
	s.recordOutcome(outcome)
	s.auditOutcome(ctx, claim, outcome)
	return outcome, nil
}

// verify applies the steps in order and stops at the first failure:
// status, expiry, method, website proof, trust decision, persistence.
func (s *Service) verify(ctx context.Context, claim *models.Claim) (models.Outcome, error) {
	if !claim.IsPending() {
		return models.AlreadyFinalized(), nil
	}

	now := requestcontext.Now(ctx)
	if claim.IsExpired(now) {
		return s.expire(ctx, claim)
	}

	if !claim.HasWebsiteTarget() {
		return models.InvalidMethod(), nil
	}

	result := s.websites.Verify(ctx, *claim.VerificationURL, claim.VerificationCode)
	if !result.Verified {
		if result.Failure == website.FailureCodeNotFound {
			return models.CodeNotFound(result.Message), nil
		}
		return models.Unreachable(result.Message), nil
	}

	user, creator, err := s.loadParties(ctx, claim)
	if err != nil {
		return models.Outcome{}, err
	}
	if user == nil {
		return models.UserNotFound(), nil
	}

	if creator.HasTrustedWebsite() || website.SameDomain(email.Domain(user.Email), *claim.VerificationURL) {
		return s.approve(ctx, claim, now)
	}
	return s.sendToReview(ctx, claim)
}

// loadParties fetches the claimant and creator concurrently. A missing user
// yields a nil user; a missing creator is an error.
func (s *Service) loadParties(ctx context.Context, claim *models.Claim) (*models.User, *models.Creator, error) {
	var (
		user    *models.User
		creator *models.Creator
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.FindByID(gctx, claim.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		user = u
		return nil
	})
	g.Go(func() error {
		c, err := s.creators.FindByID(gctx, claim.CreatorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "creator not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load creator")
		}
		creator = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return user, creator, nil
}

func (s *Service) expire(ctx context.Context, claim *models.Claim) (models.Outcome, error) {
	if err := claim.Expire(); err != nil {
		return models.Outcome{}, err
	}
	if err := s.claims.UpdateStatus(ctx, claim, models.ClaimStatusPending); err != nil {
		return s.persistFailure(err)
	}
	return models.Expired(), nil
}

func (s *Service) approve(ctx context.Context, claim *models.Claim, now time.Time) (models.Outcome, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := claim.Approve(now); err != nil {
			return err
		}
		if err := s.transferCreator(ctx, claim, now); err != nil {
			return err
		}
		return s.claims.UpdateStatus(ctx, claim, models.ClaimStatusPending)
	})
	if err != nil {
		return s.persistFailure(err)
	}
	s.incrementOwnershipTransferred()
	s.logAudit(ctx, audit.EventOwnershipTransferred, claim, "decision", "auto_approved")
	return models.Approved(), nil
}

// transferCreator hands the claim's creator to the claimant. The creator is
// re-read under the store lock, so of two claims racing for one creator only
// the first transfer succeeds. Call it before writing the claim; in-memory
// stores do not roll back.
func (s *Service) transferCreator(ctx context.Context, claim *models.Claim, now time.Time) error {
	_, err := s.creators.Execute(ctx, claim.CreatorID,
		func(c *models.Creator) error {
			return c.CanTransferOwnership(claim.UserID)
		},
		func(c *models.Creator) {
			c.ApplyOwnershipTransfer(claim.UserID, claim.VerificationURL, now)
		},
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "creator not found")
	}
	return err
}

func (s *Service) sendToReview(ctx context.Context, claim *models.Claim) (models.Outcome, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := claim.SendToReview(); err != nil {
			return err
		}
		return s.claims.UpdateStatus(ctx, claim, models.ClaimStatusPending)
	})
	if err != nil {
		return s.persistFailure(err)
	}
	return models.PendingReview(), nil
}

// persistFailure maps a lost status race to AlreadyFinalized. Domain errors
// pass through; everything else is internal.
func (s *Service) persistFailure(err error) (models.Outcome, error) {
	if errors.Is(err, sentinel.ErrInvalidState) {
		return models.AlreadyFinalized(), nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return models.Outcome{}, err
	}
	return models.Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification result")
}

func (s *Service) auditOutcome(ctx context.Context, claim *models.Claim, outcome models.Outcome) {
	switch outcome.Kind {
	case models.OutcomeApproved:
		s.logAudit(ctx, audit.EventClaimVerified, claim, "decision", string(outcome.Kind))
	case models.OutcomePendingReview:
		s.logAudit(ctx, audit.EventClaimSentToReview, claim, "decision", string(outcome.Kind))
	case models.OutcomeExpired:
		s.logAudit(ctx, audit.EventClaimExpired, claim, "reason", outcome.Message)
	case models.OutcomeAlreadyFinalized:
		// nothing changed
	default:
		s.logAudit(ctx, audit.EventClaimVerificationFailed, claim,
			"decision", string(outcome.Kind), "reason", outcome.Message)
	}
}
