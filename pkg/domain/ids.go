package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "photobook/pkg/domain-errors"
)

// Typed identifiers keep users, creators and claims from being mixed up at
// compile time. All of them are UUIDs on the wire and in storage.
type (
	UserID    uuid.UUID
	CreatorID uuid.UUID
	ClaimID   uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id CreatorID) String() string { return uuid.UUID(id).String() }
func (id ClaimID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CreatorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps the canonical UUID form in JSON.
func (id UserID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id CreatorID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ClaimID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CreatorID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ClaimID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewClaimID returns a fresh random claim identifier.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// ParseUserID parses a user identifier received at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseCreatorID parses a creator identifier received at a trust boundary.
func ParseCreatorID(s string) (CreatorID, error) {
	u, err := parseUUID(s, "creator ID")
	return CreatorID(u), err
}

// ParseClaimID parses a claim identifier received at a trust boundary.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s, "claim ID")
	return ClaimID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs.
func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
