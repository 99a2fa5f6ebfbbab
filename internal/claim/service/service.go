package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"photobook/internal/claim/code"
	"photobook/internal/claim/device"
	"photobook/internal/claim/lock"
	"photobook/internal/claim/metrics"
	"photobook/internal/claim/models"
	"photobook/internal/claim/notify"
	"photobook/internal/claim/website"
	"photobook/pkg/attrs"
	id "photobook/pkg/domain"
	"photobook/pkg/platform/audit"
	"photobook/pkg/requestcontext"
)

type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	FindPendingByUserAndCreator(ctx context.Context, userID id.UserID, creatorID id.CreatorID) (*models.Claim, error)
	UpdateStatus(ctx context.Context, claim *models.Claim, from models.ClaimStatus) error
	Delete(ctx context.Context, claimID id.ClaimID) error
	ListByStatus(ctx context.Context, statuses ...models.ClaimStatus) ([]*models.Claim, error)
}

// CreatorStore.Execute holds the creator's lock (mutex or FOR UPDATE) across
// validate and mutate, so ownership checks never run on a stale copy.
type CreatorStore interface {
	FindByID(ctx context.Context, creatorID id.CreatorID) (*models.Creator, error)
	Execute(ctx context.Context, creatorID id.CreatorID, validate func(*models.Creator) error, mutate func(*models.Creator)) (*models.Creator, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

// TxRunner scopes store writes to one transaction carried in ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes verification of a single claim across instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, error)
}

type WebsiteVerifier interface {
	Verify(ctx context.Context, rawURL, code string) website.Result
}

type Notifier interface {
	NotifyClaimCreated(ctx context.Context, msg notify.Notification) error
}

type LinkSigner interface {
	Sign(claimID id.ClaimID, userID id.UserID, issuedAt, codeExpiresAt time.Time) (string, error)
	URL(token string) string
	Parse(ctx context.Context, token string) (id.ClaimID, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

const defaultLockTTL = 30 * time.Second

var tracer = otel.Tracer("photobook/claim/service")

// Service orchestrates the creator claim workflow: creating claims, sending
// verification links, running the verification state machine and admin review.
type Service struct {
	claims         ClaimStore
	creators       CreatorStore
	users          UserStore
	tx             TxRunner
	locker         Locker
	websites       WebsiteVerifier
	notifier       Notifier
	links          LinkSigner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	codeTTLDays    int
	lockTTL        time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCodeTTLDays sets how long a verification code stays valid.
func WithCodeTTLDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.codeTTLDays = days
		}
	}
}

// WithLockTTL bounds how long a crashed verifier can hold a claim.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// Deps groups the collaborators every Service needs.
type Deps struct {
	Claims   ClaimStore
	Creators CreatorStore
	Users    UserStore
	Tx       TxRunner
	Locker   Locker
	Websites WebsiteVerifier
	Notifier Notifier
	Links    LinkSigner
}

// New constructs a Service. All dependencies are required.
func New(deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Claims == nil:
		return nil, errors.New("claim store is required")
	case deps.Creators == nil:
		return nil, errors.New("creator store is required")
	case deps.Users == nil:
		return nil, errors.New("user store is required")
	case deps.Tx == nil:
		return nil, errors.New("tx runner is required")
	case deps.Locker == nil:
		return nil, errors.New("locker is required")
	case deps.Websites == nil:
		return nil, errors.New("website verifier is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	case deps.Links == nil:
		return nil, errors.New("link signer is required")
	}
	s := &Service{
		claims:      deps.Claims,
		creators:    deps.Creators,
		users:       deps.Users,
		tx:          deps.Tx,
		locker:      deps.Locker,
		websites:    deps.Websites,
		notifier:    deps.Notifier,
		links:       deps.Links,
		codeTTLDays: code.DefaultExpiryDays,
		lockTTL:     defaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, claim *models.Claim, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if claim != nil {
		attributes = append(attributes,
			"claim_id", claim.ID.String(),
			"user_id", claim.UserID.String(),
			"creator_id", claim.CreatorID.String(),
		)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	e := audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		Action:    string(event),
		RequestID: requestID,
		Decision:  attrs.ExtractString(attributes, "decision"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		ActorID:   attrs.ExtractString(attributes, "admin_id"),
	}
	if claim != nil {
		e.UserID = claim.UserID
		e.Subject = claim.ID.String()
		e.CreatorID = claim.CreatorID.String()
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		e.Device = device.ParseUserAgent(ua)
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) incrementClaimsCreated() {
	if s.metrics != nil {
		s.metrics.IncrementClaimsCreated()
	}
}

func (s *Service) incrementNotificationFailures() {
	if s.metrics != nil {
		s.metrics.IncrementNotificationFailures()
	}
}

func (s *Service) incrementOwnershipTransferred() {
	if s.metrics != nil {
		s.metrics.IncrementOwnershipTransferred()
	}
}

func (s *Service) recordOutcome(outcome models.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(string(outcome.Kind))
	}
}

func (s *Service) recordReview(decision string) {
	if s.metrics != nil {
		s.metrics.RecordReview(decision)
	}
}

func (s *Service) observeVerifyClaim(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveVerifyClaim(start)
	}
}
