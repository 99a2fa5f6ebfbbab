package service

import (
	"strings"
	"time"

	"go.uber.org/mock/gomock"

	"photobook/internal/claim/models"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/platform/audit"
)

// inReview verifies a claim whose website domain does not match the claimant.
func (s *ServiceSuite) inReview() (*models.User, *models.Creator, *models.Claim) {
	user := s.seedUser("test@gmail.com")
	creator := s.seedCreator(nil)
	claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
	s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified())
	outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().True(outcome.RequiresApproval())
	return user, creator, claim
}

func (s *ServiceSuite) TestListClaimsForReview() {
	_, _, reviewed := s.inReview()
	other := s.seedUser("other@example.com")
	s.seedClaim(other.ID, s.seedCreator(nil).ID, strPtr("https://example.com"), s.now)

	claims, err := s.service.ListClaimsForReview(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(claims, 1)
	s.Equal(reviewed.ID, claims[0].ID)
}

func (s *ServiceSuite) TestApproveClaim() {
	s.Run("approval transfers ownership", func() {
		user, creator, claim := s.inReview()

		approved, err := s.service.ApproveClaim(s.ctx, claim.ID, "admin-1", " looks legit ")
		s.Require().NoError(err)
		s.Equal(models.ClaimStatusApproved, approved.Status)
		s.Equal("admin-1", approved.ReviewedBy)
		s.Equal("looks legit", approved.ReviewNote)
		s.Require().NotNil(approved.VerifiedAt)

		owned := s.storedCreator(creator.ID)
		s.Require().NotNil(owned.OwnerUserID)
		s.Equal(user.ID, *owned.OwnerUserID)
		s.Equal("https://example.com", *owned.Website)
		s.True(s.hasAudit(user.ID, audit.EventClaimReviewApproved))
		s.True(s.hasAudit(user.ID, audit.EventOwnershipTransferred))
	})

	s.Run("pending claim is not reviewable", func() {
		user := s.seedUser("test@example.com")
		claim := s.seedClaim(user.ID, s.seedCreator(nil).ID, strPtr("https://example.com"), s.now)

		_, err := s.service.ApproveClaim(s.ctx, claim.ID, "admin-1", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("decision is final", func() {
		_, _, claim := s.inReview()
		_, err := s.service.ApproveClaim(s.ctx, claim.ID, "admin-1", "")
		s.Require().NoError(err)

		_, err = s.service.RejectClaim(s.ctx, claim.ID, "admin-2", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("creator taken by another claim leaves the review open", func() {
		_, creator, claim := s.inReview()
		rival := s.seedUser("owner@example.com")
		rivalClaim := s.seedClaim(rival.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified())
		outcome, err := s.service.VerifyClaim(s.ctx, rivalClaim.ID)
		s.Require().NoError(err)
		s.Require().Equal(models.OutcomeApproved, outcome.Kind)

		_, err = s.service.ApproveClaim(s.ctx, claim.ID, "admin-1", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		stored := s.storedClaim(claim.ID)
		s.Equal(models.ClaimStatusPendingAdminReview, stored.Status)
		s.Nil(stored.VerifiedAt)
		s.Empty(stored.ReviewedBy)
		owned := s.storedCreator(creator.ID)
		s.Require().NotNil(owned.OwnerUserID)
		s.Equal(rival.ID, *owned.OwnerUserID)
	})

	s.Run("suspended creator is not transferred", func() {
		_, creator, claim := s.inReview()
		suspended := s.storedCreator(creator.ID)
		suspended.Status = models.CreatorStatusSuspended
		s.Require().NoError(s.creators.Save(s.ctx, suspended))

		_, err := s.service.ApproveClaim(s.ctx, claim.ID, "admin-1", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal(models.ClaimStatusPendingAdminReview, s.storedClaim(claim.ID).Status)
		s.Nil(s.storedCreator(creator.ID).OwnerUserID)
	})

	s.Run("overlong note is a validation error", func() {
		_, _, claim := s.inReview()
		_, err := s.service.ApproveClaim(s.ctx, claim.ID, "admin-1", strings.Repeat("x", 1001))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(models.ClaimStatusPendingAdminReview, s.storedClaim(claim.ID).Status)
	})
}

func (s *ServiceSuite) TestRejectClaim() {
	user, creator, claim := s.inReview()

	rejected, err := s.service.RejectClaim(s.ctx, claim.ID, "admin-1", "website does not match")
	s.Require().NoError(err)
	s.Equal(models.ClaimStatusRejected, rejected.Status)
	s.Nil(rejected.VerifiedAt)

	untouched := s.storedCreator(creator.ID)
	s.Nil(untouched.OwnerUserID)
	s.Equal(models.CreatorStatusStub, untouched.Status)
	s.True(s.hasAudit(user.ID, audit.EventClaimReviewRejected))
}
