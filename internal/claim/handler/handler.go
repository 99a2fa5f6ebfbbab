package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"photobook/internal/claim/models"
	"photobook/internal/claim/website"
	"photobook/internal/platform/middleware"
	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/platform/httputil"
	"photobook/pkg/requestcontext"
)

// Service defines the claim operations exposed over HTTP.
type Service interface {
	RequestClaim(ctx context.Context, userID id.UserID, creatorID id.CreatorID, req models.CreateClaimRequest) (*models.Claim, error)
	VerifyLink(ctx context.Context, token string) (models.Outcome, error)
	GetPendingClaimByUserAndCreator(ctx context.Context, userID id.UserID, creatorID id.CreatorID) (*models.Claim, error)
	WithdrawClaim(ctx context.Context, userID id.UserID, claimID id.ClaimID) error
	ListClaimsForReview(ctx context.Context) ([]*models.Claim, error)
	ApproveClaim(ctx context.Context, claimID id.ClaimID, adminID, note string) (*models.Claim, error)
	RejectClaim(ctx context.Context, claimID id.ClaimID, adminID, note string) (*models.Claim, error)
}

// Handler serves the claim endpoints.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: service, logger: logger, adminToken: adminToken}
}

// Register mounts claimant, verification-link and admin routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(h.logger))
		r.Post("/creators/{creatorID}/claims", h.handleRequestClaim)
		r.Get("/claims/pending", h.handleGetPending)
		r.Delete("/claims/{claimID}", h.handleWithdrawClaim)
	})

	// The link is opened from an email client, so it carries its own proof.
	r.Get("/claims/verify", h.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/admin/claims", h.handleListForReview)
		r.Post("/admin/claims/{claimID}/approve", h.handleApprove)
		r.Post("/admin/claims/{claimID}/reject", h.handleReject)
	})
}

type requestClaimResponse struct {
	ClaimID          string    `json:"claim_id"`
	Status           string    `json:"status"`
	CodeExpiresAt    time.Time `json:"code_expires_at"`
	VerificationCode string    `json:"verification_code"`
	MetaTag          string    `json:"meta_tag"`
}

type verifyResponse struct {
	Verified         bool    `json:"verified"`
	Error            *string `json:"error"`
	RequiresApproval bool    `json:"requires_approval"`
	Outcome          string  `json:"outcome"`
}

type claimListResponse struct {
	Claims []*models.Claim `json:"claims"`
}

func (h *Handler) handleRequestClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creatorID, err := id.ParseCreatorID(chi.URLParam(r, "creatorID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	var req models.CreateClaimRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	claim, err := h.service.RequestClaim(ctx, requestcontext.UserID(ctx), creatorID, req)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, requestClaimResponse{
		ClaimID:          claim.ID.String(),
		Status:           string(claim.Status),
		CodeExpiresAt:    claim.CodeExpiresAt,
		VerificationCode: claim.VerificationCode,
		MetaTag:          website.MetaTag(claim.VerificationCode),
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	outcome, err := h.service.VerifyLink(ctx, r.URL.Query().Get("token"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	resp := verifyResponse{
		Verified:         outcome.Verified(),
		RequiresApproval: outcome.RequiresApproval(),
		Outcome:          string(outcome.Kind),
	}
	if msg := outcome.Error(); msg != "" {
		resp.Error = &msg
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creatorID, err := id.ParseCreatorID(r.URL.Query().Get("creator_id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	claim, err := h.service.GetPendingClaimByUserAndCreator(ctx, requestcontext.UserID(ctx), creatorID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if claim == nil {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeNotFound, "no pending claim"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) handleWithdrawClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if err := h.service.WithdrawClaim(ctx, requestcontext.UserID(ctx), claimID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListForReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := h.service.ListClaimsForReview(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if claims == nil {
		claims = []*models.Claim{}
	}
	httputil.WriteJSON(w, http.StatusOK, claimListResponse{Claims: claims})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.service.ApproveClaim)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.service.RejectClaim)
}

type reviewFunc func(ctx context.Context, claimID id.ClaimID, adminID, note string) (*models.Claim, error)

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request, review reviewFunc) {
	ctx := r.Context()
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	var req models.ReviewRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(ctx, w, err)
			return
		}
	}
	claim, err := review(ctx, claimID, middleware.GetAdminID(ctx), req.Note)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

// writeError logs server-side failures at error level and client mistakes at
// warn before rendering the envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "claim request failed",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, "claim request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
