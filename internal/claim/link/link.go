// Package link signs and validates the verification links emailed to claimants.
package link

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
	"photobook/pkg/requestcontext"
)

const (
	issuer   = "photobook"
	audience = "claim-verification"

	// Grace keeps links valid past the code expiry so a late click still
	// reaches the state machine and gets the expired message.
	Grace = 30 * 24 * time.Hour
)

// Claims are the JWT claims carried by a verification link.
type Claims struct {
	ClaimID string `json:"claim_id"`
	UserID  string `json:"user_id"`
	jwt.RegisteredClaims
}

// Signer issues HS256 verification tokens and builds links around them.
type Signer struct {
	signingKey []byte
	baseURL    string
}

func NewSigner(signingKey, baseURL string) *Signer {
	return &Signer{signingKey: []byte(signingKey), baseURL: strings.TrimRight(baseURL, "/")}
}

// Sign returns a token for claimID that stays valid until codeExpiresAt+Grace.
func (s *Signer) Sign(claimID id.ClaimID, userID id.UserID, issuedAt, codeExpiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ClaimID: claimID.String(),
		UserID:  userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  []string{audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(codeExpiresAt.Add(Grace)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign verification link")
	}
	return signed, nil
}

// URL builds the absolute verification link for a signed token.
func (s *Signer) URL(token string) string {
	return s.baseURL + "/claims/verify?token=" + url.QueryEscape(token)
}

// Parse validates token and returns the claim it refers to. Expiry is checked
// against the request clock carried by ctx.
func (s *Signer) Parse(ctx context.Context, token string) (id.ClaimID, error) {
	if strings.TrimSpace(token) == "" {
		return id.ClaimID{}, dErrors.New(dErrors.CodeBadRequest, "verification token is required")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.ClaimID{}, dErrors.New(dErrors.CodeUnauthorized, "verification link has expired")
		}
		return id.ClaimID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid verification link")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.ClaimID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid verification link")
	}
	claimID, err := id.ParseClaimID(claims.ClaimID)
	if err != nil {
		return id.ClaimID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid verification link")
	}
	return claimID, nil
}
