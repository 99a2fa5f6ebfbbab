package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"photobook/internal/claim/models"
	"photobook/internal/claim/store"
	creatorStore "photobook/internal/claim/store/creator"
	"photobook/internal/claim/website"
	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/platform/audit"
)

func verified() website.Result { return website.Result{Verified: true} }

func (s *ServiceSuite) TestVerifyClaim_AutoApproval() {
	s.Run("email domain matches verification website", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), "https://example.com", "ABCD2345").Return(verified())

		outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.True(outcome.Verified())
		s.False(outcome.RequiresApproval())
		s.Empty(outcome.Error())
		s.Equal(models.OutcomeApproved, outcome.Kind)

		stored := s.storedClaim(claim.ID)
		s.Equal(models.ClaimStatusApproved, stored.Status)
		s.Require().NotNil(stored.VerifiedAt)
		s.True(stored.VerifiedAt.Equal(s.now))

		owned := s.storedCreator(creator.ID)
		s.Require().NotNil(owned.OwnerUserID)
		s.Equal(user.ID, *owned.OwnerUserID)
		s.Require().NotNil(owned.Website)
		s.Equal("https://example.com", *owned.Website)
		s.Equal(models.CreatorStatusVerified, owned.Status)

		s.True(s.hasAudit(user.ID, audit.EventOwnershipTransferred))
		s.True(s.hasAudit(user.ID, audit.EventClaimVerified))
	})

	s.Run("www prefix and case do not matter", func() {
		user := s.seedUser("Owner@Studio.example")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://www.STUDIO.example/portfolio"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified())

		outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeApproved, outcome.Kind)
	})

	s.Run("creator with a website on file is trusted", func() {
		user := s.seedUser("test@gmail.com")
		creator := s.seedCreator(strPtr("https://example.com"))
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), "https://example.com", "ABCD2345").Return(verified())

		outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.True(outcome.Verified())
		s.False(outcome.RequiresApproval())

		s.Equal(models.ClaimStatusApproved, s.storedClaim(claim.ID).Status)
		owned := s.storedCreator(creator.ID)
		s.Require().NotNil(owned.OwnerUserID)
		s.Equal(user.ID, *owned.OwnerUserID)
	})
}

func (s *ServiceSuite) TestVerifyClaim_ManualReview() {
	user := s.seedUser("test@gmail.com")
	creator := s.seedCreator(nil)
	claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
	s.mockWebsites.EXPECT().Verify(gomock.Any(), "https://example.com", "ABCD2345").Return(verified())

	outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.True(outcome.Verified())
	s.True(outcome.RequiresApproval())
	s.Empty(outcome.Error())

	s.Equal(models.ClaimStatusPendingAdminReview, s.storedClaim(claim.ID).Status)
	untouched := s.storedCreator(creator.ID)
	s.Nil(untouched.OwnerUserID)
	s.Nil(untouched.Website)
	s.Equal(models.CreatorStatusStub, untouched.Status)
	s.True(s.hasAudit(user.ID, audit.EventClaimSentToReview))
	s.False(s.hasAudit(user.ID, audit.EventOwnershipTransferred))
}

func (s *ServiceSuite) TestVerifyClaim_Expired() {
	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)
	claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.AddDate(0, 0, -8))
	// No Verify expectation: touching the website fails the test.

	outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.False(outcome.Verified())
	s.False(outcome.RequiresApproval())
	s.Equal("Verification code has expired. Please request a new one.", outcome.Error())
	s.Equal(models.ClaimStatusRejected, s.storedClaim(claim.ID).Status)
	s.True(s.hasAudit(user.ID, audit.EventClaimExpired))

	s.Run("second attempt reports already processed", func() {
		again, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeAlreadyFinalized, again.Kind)
	})
}

func (s *ServiceSuite) TestVerifyClaim_ExpiryBoundary() {
	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)
	// Code expires exactly now: not yet expired.
	claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.AddDate(0, 0, -7))
	s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified())

	outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(models.OutcomeApproved, outcome.Kind)
}

func (s *ServiceSuite) TestVerifyClaim_InvalidMethod() {
	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)
	claim := s.seedClaim(user.ID, creator.ID, nil, s.now.Add(-time.Hour))

	outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.False(outcome.Verified())
	s.False(outcome.RequiresApproval())
	s.Equal("Invalid verification method", outcome.Error())
	s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)
}

func (s *ServiceSuite) TestVerifyClaim_WebsiteFailures() {
	s.Run("code not found leaves the claim pending", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(website.Result{
			Failure: website.FailureCodeNotFound,
			Message: website.MsgCodeNotFound,
		})

		outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeCodeNotFound, outcome.Kind)
		s.Equal(website.MsgCodeNotFound, outcome.Error())
		s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)
		s.True(s.hasAudit(user.ID, audit.EventClaimVerificationFailed))
	})

	s.Run("unreachable website passes the fetcher message through", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(website.Result{
			Failure: website.FailureHTTPStatus,
			Message: "Website returned HTTP 503 Service Unavailable",
		})

		outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeUnreachable, outcome.Kind)
		s.Equal("Website returned HTTP 503 Service Unavailable", outcome.Error())
		s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)
	})
}

// TestVerifyClaim_CodeMismatchAgainstRealPage runs the real fetcher against a
// page that does not carry the code.
func (s *ServiceSuite) TestVerifyClaim_CodeMismatchAgainstRealPage() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "wrong code")
	}))
	defer srv.Close()

	svc, err := New(Deps{
		Claims:   s.claims,
		Creators: s.creators,
		Users:    s.users,
		Tx:       store.NewMemoryTx(),
		Locker:   s.locker,
		Websites: website.NewVerifier(website.WithPrivateNetworks(), website.WithTimeout(2*time.Second)),
		Notifier: s.mockNotifier,
		Links:    s.signer,
	})
	s.Require().NoError(err)

	user := s.seedUser("test@example.com")
	creator := s.seedCreator(nil)
	claim := s.seedClaim(user.ID, creator.ID, strPtr(srv.URL), s.now.Add(-time.Hour))

	outcome, err := svc.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.False(outcome.Verified())
	s.NotEmpty(outcome.Error())
	s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)
}

// rendezvousCreators holds each FindByID until both verifications have read
// the creator, so both see it unowned.
type rendezvousCreators struct {
	*creatorStore.InMemoryStore
	arrived sync.WaitGroup
}

func (r *rendezvousCreators) FindByID(ctx context.Context, creatorID id.CreatorID) (*models.Creator, error) {
	c, err := r.InMemoryStore.FindByID(ctx, creatorID)
	r.arrived.Done()
	r.arrived.Wait()
	return c, err
}

// TestVerifyClaim_CompetingClaimsOnOneCreator verifies two claims by different
// users on the same creator concurrently: exactly one takes ownership.
func (s *ServiceSuite) TestVerifyClaim_CompetingClaimsOnOneCreator() {
	creators := &rendezvousCreators{InMemoryStore: s.creators}
	creators.arrived.Add(2)
	svc, err := New(Deps{
		Claims:   s.claims,
		Creators: creators,
		Users:    s.users,
		Tx:       store.NewMemoryTx(),
		Locker:   s.locker,
		Websites: s.mockWebsites,
		Notifier: s.mockNotifier,
		Links:    s.signer,
	})
	s.Require().NoError(err)

	creator := s.seedCreator(nil)
	first := s.seedUser("first@example.com")
	second := s.seedUser("second@example.com")
	claims := []*models.Claim{
		s.seedClaim(first.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour)),
		s.seedClaim(second.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour)),
	}
	s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified()).Times(2)

	outcomes := make([]models.Outcome, len(claims))
	errs := make([]error, len(claims))
	var wg sync.WaitGroup
	for i, c := range claims {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], errs[i] = svc.VerifyClaim(s.ctx, c.ID)
		}()
	}
	wg.Wait()

	var winner *models.Claim
	approved, conflicts := 0, 0
	for i, c := range claims {
		if errs[i] == nil && outcomes[i].Kind == models.OutcomeApproved {
			approved++
			winner = c
			s.Equal(models.ClaimStatusApproved, s.storedClaim(c.ID).Status)
			continue
		}
		if dErrors.HasCode(errs[i], dErrors.CodeConflict) {
			conflicts++
		}
		s.Equal(models.ClaimStatusPending, s.storedClaim(c.ID).Status)
	}
	s.Equal(1, approved)
	s.Equal(1, conflicts)
	s.Require().NotNil(winner)

	owned := s.storedCreator(creator.ID)
	s.Require().NotNil(owned.OwnerUserID)
	s.Equal(winner.UserID, *owned.OwnerUserID)
}

func (s *ServiceSuite) TestVerifyClaim_MissingUser() {
	creator := s.seedCreator(nil)
	claim := s.seedClaim(id.UserID(uuid.New()), creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
	s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified())

	outcome, err := s.service.VerifyClaim(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.False(outcome.Verified())
	s.False(outcome.RequiresApproval())
	s.Equal("User not found", outcome.Error())
	s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)
	s.Nil(s.storedCreator(creator.ID).OwnerUserID)
}

func (s *ServiceSuite) TestVerifyClaim_Guards() {
	s.Run("already finalized claim is not re-verified", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified()).Times(1)

		first, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeApproved, first.Kind)

		second, err := s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeAlreadyFinalized, second.Kind)
		s.Equal("Claim has already been processed", second.Error())
	})

	s.Run("claim held by another verification is a conflict", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		release, err := s.locker.Acquire(s.ctx, claim.ID.String(), time.Minute)
		s.Require().NoError(err)
		defer func() { _ = release(context.Background()) }()

		_, err = s.service.VerifyClaim(s.ctx, claim.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.ClaimStatusPending, s.storedClaim(claim.ID).Status)
	})

	s.Run("unknown claim is not found", func() {
		_, err := s.service.VerifyClaim(s.ctx, id.NewClaimID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("creator owned by someone else is a conflict", func() {
		winner := s.seedUser("winner@example.com")
		loser := s.seedUser("loser@example.com")
		creator := s.seedCreator(nil)
		first := s.seedClaim(winner.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-2*time.Hour))
		second := s.seedClaim(loser.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified()).Times(2)

		outcome, err := s.service.VerifyClaim(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(models.OutcomeApproved, outcome.Kind)

		_, err = s.service.VerifyClaim(s.ctx, second.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.ClaimStatusPending, s.storedClaim(second.ID).Status)
		s.Equal(winner.ID, *s.storedCreator(creator.ID).OwnerUserID)
	})
}

func (s *ServiceSuite) TestVerifyLink() {
	s.Run("valid link verifies the claim", func() {
		user := s.seedUser("test@example.com")
		creator := s.seedCreator(nil)
		claim := s.seedClaim(user.ID, creator.ID, strPtr("https://example.com"), s.now.Add(-time.Hour))
		token, err := s.signer.Sign(claim.ID, user.ID, time.Now(), time.Now().Add(time.Hour))
		s.Require().NoError(err)
		s.mockWebsites.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(verified())

		outcome, err := s.service.VerifyLink(s.ctx, token)
		s.Require().NoError(err)
		s.Equal(models.OutcomeApproved, outcome.Kind)
	})

	s.Run("tampered link is unauthorized", func() {
		_, err := s.service.VerifyLink(s.ctx, "not-a-token")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing token is a bad request", func() {
		_, err := s.service.VerifyLink(s.ctx, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
