package models

// OutcomeKind enumerates every result of a verification attempt.
type OutcomeKind string

const (
	OutcomeApproved         OutcomeKind = "approved"
	OutcomePendingReview    OutcomeKind = "pending_admin_review"
	OutcomeExpired          OutcomeKind = "expired"
	OutcomeInvalidMethod    OutcomeKind = "invalid_method"
	OutcomeUserNotFound     OutcomeKind = "user_not_found"
	OutcomeCodeNotFound     OutcomeKind = "code_not_found"
	OutcomeUnreachable      OutcomeKind = "unreachable"
	OutcomeAlreadyFinalized OutcomeKind = "already_finalized"
)

const (
	MsgExpired          = "Verification code has expired. Please request a new one."
	MsgInvalidMethod    = "Invalid verification method"
	MsgUserNotFound     = "User not found"
	MsgAlreadyFinalized = "Claim has already been processed"
)

// Outcome is the result of VerifyClaim. Failures live here rather than in
// error returns so the caller can show Message to the claimant as is.
type Outcome struct {
	Kind    OutcomeKind `json:"outcome"`
	Message string      `json:"error,omitempty"`
}

// Verified reports whether the website proof succeeded.
func (o Outcome) Verified() bool {
	return o.Kind == OutcomeApproved || o.Kind == OutcomePendingReview
}

// RequiresApproval reports whether an administrator must still decide.
func (o Outcome) RequiresApproval() bool {
	return o.Kind == OutcomePendingReview
}

// Error returns the user-facing failure message, or "" on success.
func (o Outcome) Error() string {
	if o.Verified() {
		return ""
	}
	return o.Message
}

func Approved() Outcome      { return Outcome{Kind: OutcomeApproved} }
func PendingReview() Outcome { return Outcome{Kind: OutcomePendingReview} }
func Expired() Outcome       { return Outcome{Kind: OutcomeExpired, Message: MsgExpired} }
func InvalidMethod() Outcome { return Outcome{Kind: OutcomeInvalidMethod, Message: MsgInvalidMethod} }
func UserNotFound() Outcome  { return Outcome{Kind: OutcomeUserNotFound, Message: MsgUserNotFound} }
func AlreadyFinalized() Outcome {
	return Outcome{Kind: OutcomeAlreadyFinalized, Message: MsgAlreadyFinalized}
}

// CodeNotFound and Unreachable carry the fetcher's message.
func CodeNotFound(msg string) Outcome { return Outcome{Kind: OutcomeCodeNotFound, Message: msg} }
func Unreachable(msg string) Outcome  { return Outcome{Kind: OutcomeUnreachable, Message: msg} }
