package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"photobook/internal/claim/models"
	"photobook/internal/claim/notify"
	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/platform/audit"
)

func (s *ServiceSuite) TestCreateClaim() {
	s.Run("generates code and seven day expiry", func() {
		userID := id.UserID(uuid.New())
		creatorID := id.CreatorID(uuid.New())

		claim, err := s.service.CreateClaim(s.ctx, userID, creatorID, strPtr("https://example.com"), models.VerificationMethodWebsite)
		s.Require().NoError(err)
		s.Equal(models.ClaimStatusPending, claim.Status)
		s.Len(claim.VerificationCode, 8)
		s.True(claim.CodeExpiresAt.Equal(s.now.AddDate(0, 0, 7)))
		s.True(claim.RequestedAt.Equal(s.now))
		s.Nil(claim.VerifiedAt)

		stored := s.storedClaim(claim.ID)
		s.Equal(claim.VerificationCode, stored.VerificationCode)
	})

	s.Run("second pending claim for the same pair is a conflict", func() {
		userID := id.UserID(uuid.New())
		creatorID := id.CreatorID(uuid.New())
		_, err := s.service.CreateClaim(s.ctx, userID, creatorID, strPtr("https://example.com"), models.VerificationMethodWebsite)
		s.Require().NoError(err)

		_, err = s.service.CreateClaim(s.ctx, userID, creatorID, strPtr("https://example.com"), models.VerificationMethodWebsite)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown method is a validation error", func() {
		_, err := s.service.CreateClaim(s.ctx, id.UserID(uuid.New()), id.CreatorID(uuid.New()), nil, "carrier-pigeon")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestGetPendingClaimByUserAndCreator() {
	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)

	s.Run("absent claim returns nil without error", func() {
		claim, err := s.service.GetPendingClaimByUserAndCreator(s.ctx, user.ID, creator.ID)
		s.Require().NoError(err)
		s.Nil(claim)
	})

	s.Run("pending claim is returned", func() {
		seeded := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now)
		claim, err := s.service.GetPendingClaimByUserAndCreator(s.ctx, user.ID, creator.ID)
		s.Require().NoError(err)
		s.Require().NotNil(claim)
		s.Equal(seeded.ID, claim.ID)
	})
}

func (s *ServiceSuite) TestDeleteClaim() {
	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)
	claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now)

	s.Require().NoError(s.service.DeleteClaim(s.ctx, claim.ID))
	_, err := s.claims.FindByID(s.ctx, claim.ID)
	s.Error(err)

	err = s.service.DeleteClaim(s.ctx, claim.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRequestClaim() {
	s.Run("creates the claim and sends a signed link", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		var sent notify.Notification
		s.mockNotifier.EXPECT().NotifyClaimCreated(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msg notify.Notification) error {
				sent = msg
				return nil
			})

		claim, err := s.service.RequestClaim(s.ctx, user.ID, creator.ID, models.CreateClaimRequest{
			VerificationURL: " example.com/ ",
		})
		s.Require().NoError(err)
		s.Require().NotNil(claim.VerificationURL)
		s.Equal("https://example.com", *claim.VerificationURL)
		s.Equal(models.VerificationMethodWebsite, claim.VerificationMethod)

		s.Equal(claim.ID.String(), sent.ClaimID)
		s.Equal("test@example.com", sent.Email)
		s.Equal(creator.DisplayName, sent.CreatorName)
		s.Equal(claim.VerificationCode, sent.VerificationCode)
		s.Contains(sent.MetaTag, claim.VerificationCode)
		s.True(strings.HasPrefix(sent.VerifyLink, "https://photobook.test/claims/verify?token="))

		token := strings.TrimPrefix(sent.VerifyLink, "https://photobook.test/claims/verify?token=")
		parsed, err := s.signer.Parse(s.ctx, token)
		s.Require().NoError(err)
		s.Equal(claim.ID, parsed)
		s.True(s.hasAudit(user.ID, audit.EventClaimRequested))
	})

	s.Run("notification failure deletes the claim", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		s.mockNotifier.EXPECT().NotifyClaimCreated(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		_, err := s.service.RequestClaim(s.ctx, user.ID, creator.ID, models.CreateClaimRequest{
			VerificationURL: "https://example.com",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

		pending, err := s.service.GetPendingClaimByUserAndCreator(s.ctx, user.ID, creator.ID)
		s.Require().NoError(err)
		s.Nil(pending)
		s.True(s.hasAudit(user.ID, audit.EventNotificationFailed))
	})

	s.Run("duplicate pending claim is rejected before creation", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		s.mockNotifier.EXPECT().NotifyClaimCreated(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		req := models.CreateClaimRequest{VerificationURL: "https://example.com"}
		_, err := s.service.RequestClaim(s.ctx, user.ID, creator.ID, req)
		s.Require().NoError(err)

		_, err = s.service.RequestClaim(s.ctx, user.ID, creator.ID, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("owned creator cannot be claimed", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		owner := id.UserID(uuid.New())
		creator.OwnerUserID = &owner
		creator.Status = models.CreatorStatusVerified
		s.Require().NoError(s.creators.Save(s.ctx, creator))

		_, err := s.service.RequestClaim(s.ctx, user.ID, creator.ID, models.CreateClaimRequest{VerificationURL: "https://example.com"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown creator is not found", func() {
		user := s.seedUser("test@example.com")
		_, err := s.service.RequestClaim(s.ctx, user.ID, id.CreatorID(uuid.New()), models.CreateClaimRequest{VerificationURL: "https://example.com"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("website claim without url is a validation error", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		_, err := s.service.RequestClaim(s.ctx, user.ID, creator.ID, models.CreateClaimRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestWithdrawClaim() {
	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)

	s.Run("other user is forbidden", func() {
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now)
		err := s.service.WithdrawClaim(s.ctx, id.UserID(uuid.New()), claim.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Require().NoError(s.service.WithdrawClaim(s.ctx, user.ID, claim.ID))
		s.True(s.hasAudit(user.ID, audit.EventClaimDeleted))
	})

	s.Run("decided claim cannot be withdrawn", func() {
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.AddDate(0, 0, -10))
		_, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)

		err = s.service.WithdrawClaim(s.ctx, user.ID, claim.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("claim under verification cannot be withdrawn", func() {
		claim := s.seedClaim(user.ID, s.seedCreator(nil).ID, strPtr("https://example.com"), s.now)
		release, err := s.locker.Acquire(s.ctx, claim.ID.String(), time.Minute)
		s.Require().NoError(err)

		err = s.service.WithdrawClaim(s.ctx, user.ID, claim.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)

		s.Require().NoError(release(s.ctx))
		s.Require().NoError(s.service.WithdrawClaim(s.ctx, user.ID, claim.ID))
	})
}

func (s *ServiceSuite) TestCodeTTLOption() {
	svc, err := New(Deps{
		Claims:   s.claims,
		Creators: s.creators,
		Users:    s.users,
		Tx:       s.service.tx,
		Locker:   s.locker,
		Websites: s.mockWebsites,
		Notifier: s.mockNotifier,
		Links:    s.signer,
	}, WithCodeTTLDays(2))
	s.Require().NoError(err)

	claim, err := svc.CreateClaim(s.ctx, id.UserID(uuid.New()), id.CreatorID(uuid.New()), strPtr("https://example.com"), models.VerificationMethodWebsite)
	s.Require().NoError(err)
	s.Equal(s.now.Add(48*time.Hour), claim.CodeExpiresAt)
}
