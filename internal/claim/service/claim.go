package service

import (
	"context"
	"errors"

	"photobook/internal/claim/code"
	"photobook/internal/claim/models"
	"photobook/internal/claim/notify"
	"photobook/internal/claim/website"
	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/email"
	"photobook/pkg/platform/audit"
	"photobook/pkg/platform/sentinel"
	"photobook/pkg/requestcontext"
)

// CreateClaim persists a new pending claim with a fresh code. verificationURL
// must already be normalized.
func (s *Service) CreateClaim(
	ctx context.Context,
	userID id.UserID,
	creatorID id.CreatorID,
	verificationURL *string,
	method models.VerificationMethod,
) (*models.Claim, error) {
	verificationCode, err := code.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}
	now := requestcontext.Now(ctx)
	claim, err := models.NewClaim(
		id.NewClaimID(),
		creatorID,
		userID,
		method,
		verificationURL,
		verificationCode,
		code.ExpiresAt(now, s.codeTTLDays),
		now,
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a pending claim already exists for this creator")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
	}
	s.incrementClaimsCreated()
	return claim, nil
}

// DeleteClaim hard-deletes a claim.
func (s *Service) DeleteClaim(ctx context.Context, claimID id.ClaimID) error {
	if err := s.claims.Delete(ctx, claimID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete claim")
	}
	return nil
}

// GetPendingClaimByUserAndCreator returns nil, nil when the user has no
// pending claim on the creator.
func (s *Service) GetPendingClaimByUserAndCreator(ctx context.Context, userID id.UserID, creatorID id.CreatorID) (*models.Claim, error) {
	claim, err := s.claims.FindPendingByUserAndCreator(ctx, userID, creatorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending claim")
	}
	return claim, nil
}

// RequestClaim creates a claim and sends the verification link. Creation and
// notification are not atomic: if the notification fails the claim is deleted
// again so no claim exists whose code never reached the claimant.
func (s *Service) RequestClaim(ctx context.Context, userID id.UserID, creatorID id.CreatorID, req models.CreateClaimRequest) (*models.Claim, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creator, err := s.creators.FindByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "creator not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load creator")
	}
	if !creator.IsClaimable() {
		return nil, dErrors.New(dErrors.CodeConflict, "creator cannot be claimed")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	existing, err := s.GetPendingClaimByUserAndCreator(ctx, userID, creatorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a pending claim already exists for this creator")
	}

	claim, err := s.CreateClaim(ctx, userID, creatorID, req.URL(), req.VerificationMethod)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, claim, creator, user); err != nil {
		s.incrementNotificationFailures()
		s.logAudit(ctx, audit.EventNotificationFailed, claim, "reason", err.Error())
		if delErr := s.DeleteClaim(ctx, claim.ID); delErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to delete claim after notification failure",
				"claim_id", claim.ID.String(), "error", delErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to send verification email")
	}

	s.logAudit(ctx, audit.EventClaimRequested, claim, "method", string(claim.VerificationMethod))
	return claim, nil
}

func (s *Service) sendVerification(ctx context.Context, claim *models.Claim, creator *models.Creator, user *models.User) error {
	token, err := s.links.Sign(claim.ID, claim.UserID, claim.RequestedAt, claim.CodeExpiresAt)
	if err != nil {
		return err
	}
	msg := notify.Notification{
		ClaimID:          claim.ID.String(),
		UserID:           claim.UserID.String(),
		Email:            user.Email,
		RecipientName:    email.GreetingName(user.Email),
		CreatorName:      creator.DisplayName,
		VerificationCode: claim.VerificationCode,
		VerifyLink:       s.links.URL(token),
		MetaTag:          website.MetaTag(claim.VerificationCode),
		ExpiresAt:        claim.CodeExpiresAt,
	}
	if claim.VerificationURL != nil {
		msg.VerificationURL = *claim.VerificationURL
	}
	return s.notifier.NotifyClaimCreated(ctx, msg)
}

// WithdrawClaim lets a claimant delete their own claim while it is undecided.
// It holds the claim lock so a withdrawal cannot interleave with verification.
func (s *Service) WithdrawClaim(ctx context.Context, userID id.UserID, claimID id.ClaimID) error {
	release, err := s.locker.Acquire(ctx, claimID.String(), s.lockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return dErrors.New(dErrors.CodeConflict, "claim is being processed")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to lock claim")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to release claim lock", "claim_id", claimID.String(), "error", err)
		}
	}()

	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "claim belongs to another user")
	}
	if claim.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeConflict, models.MsgAlreadyFinalized)
	}
	if err := s.DeleteClaim(ctx, claimID); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventClaimDeleted, claim)
	return nil
}

func (s *Service) loadClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	return claim, nil
}
