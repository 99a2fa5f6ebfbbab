package models

import (
	"time"

	id "photobook/pkg/domain"
	dErrors "photobook/pkg/domain-errors"
)

// CreatorStatus is the catalogue status of a creator profile.
type CreatorStatus string

const (
	CreatorStatusStub      CreatorStatus = "stub"
	CreatorStatusVerified  CreatorStatus = "verified"
	CreatorStatusSuspended CreatorStatus = "suspended"
	CreatorStatusDeleted   CreatorStatus = "deleted"
)

// Creator is the catalogue profile a claim targets. Only the fields the claim
// workflow reads or writes are modeled here.
type Creator struct {
	ID              id.CreatorID  `json:"id"`
	DisplayName     string        `json:"display_name"`
	Status          CreatorStatus `json:"status"`
	OwnerUserID     *id.UserID    `json:"owner_user_id,omitempty"`
	Website         *string       `json:"website,omitempty"`
	CreatedByUserID id.UserID     `json:"created_by_user_id"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsClaimable reports whether a new claim may be opened against the creator.
func (c *Creator) IsClaimable() bool {
	return c.Status == CreatorStatusStub && c.OwnerUserID == nil
}

// HasTrustedWebsite reports whether a previously verified website is on file.
func (c *Creator) HasTrustedWebsite() bool {
	return c.Website != nil && *c.Website != ""
}

// CanTransferOwnership returns an error when the creator cannot pass to userID.
func (c *Creator) CanTransferOwnership(userID id.UserID) error {
	if c.OwnerUserID != nil && *c.OwnerUserID != userID {
		return dErrors.New(dErrors.CodeConflict, "creator already has an owner")
	}
	if c.Status == CreatorStatusSuspended || c.Status == CreatorStatusDeleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "creator cannot be claimed in status "+string(c.Status))
	}
	return nil
}

// ApplyOwnershipTransfer hands the creator to userID and records the proven
// website. Callers check CanTransferOwnership first.
func (c *Creator) ApplyOwnershipTransfer(userID id.UserID, website *string, now time.Time) {
	owner := userID
	c.OwnerUserID = &owner
	c.Status = CreatorStatusVerified
	if website != nil && *website != "" {
		site := *website
		c.Website = &site
	}
	c.UpdatedAt = now
}

// TransferOwnership checks and applies an ownership transfer in one step.
func (c *Creator) TransferOwnership(userID id.UserID, website *string, now time.Time) error {
	if err := c.CanTransferOwnership(userID); err != nil {
		return err
	}
	c.ApplyOwnershipTransfer(userID, website, now)
	return nil
}

// User is the claimant. Only the email domain is consulted.
type User struct {
	ID    id.UserID `json:"id"`
	Email string    `json:"email"`
}
