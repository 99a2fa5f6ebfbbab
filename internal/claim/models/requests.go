package models

import (
	"strings"

	"photobook/internal/claim/website"
	dErrors "photobook/pkg/domain-errors"
)

// CreateClaimRequest is the body of a claim request.
type CreateClaimRequest struct {
	VerificationMethod VerificationMethod `json:"verification_method"`
	VerificationURL    string             `json:"verification_url"`
}

// Normalize trims input, defaults the method to website and normalizes the URL.
func (r *CreateClaimRequest) Normalize() {
	r.VerificationMethod = VerificationMethod(strings.ToLower(strings.TrimSpace(string(r.VerificationMethod))))
	if r.VerificationMethod == "" {
		r.VerificationMethod = VerificationMethodWebsite
	}
	r.VerificationURL = website.NormalizeURL(r.VerificationURL)
}

func (r *CreateClaimRequest) Validate() error {
	if !r.VerificationMethod.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "verification_method must be website or instagram")
	}
	if r.VerificationMethod == VerificationMethodWebsite {
		if r.VerificationURL == "" {
			return dErrors.New(dErrors.CodeValidation, "verification_url is required for website verification")
		}
		if website.Hostname(r.VerificationURL) == "" {
			return dErrors.New(dErrors.CodeValidation, "verification_url is not a valid URL")
		}
	}
	return nil
}

// URL returns the verification URL as the nullable column value.
func (r *CreateClaimRequest) URL() *string {
	if r.VerificationURL == "" {
		return nil
	}
	u := r.VerificationURL
	return &u
}

// ReviewRequest carries an administrator's note on approve/reject.
type ReviewRequest struct {
	Note string `json:"note"`
}

func (r *ReviewRequest) Normalize() {
	r.Note = strings.TrimSpace(r.Note)
}

func (r *ReviewRequest) Validate() error {
	if len(r.Note) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 1000 characters")
	}
	return nil
}
