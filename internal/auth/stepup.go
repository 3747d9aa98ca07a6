package auth

import "fmt"

// StepUpChallengeError signals that the identity provider refused to issue a
// delegated token silently: the original caller must complete an interactive
// step (MFA, conditional access) and the request must be retried with a fresh
// token. It is the only failure designed to cross the whole stack as a typed
// value, because only the caller can resolve it.
type StepUpChallengeError struct {
	// ErrorCode is the provider error code (e.g. "AADSTS50079").
	ErrorCode string

	// ClaimsChallenge is the provider-issued opaque blob that must be echoed
	// back verbatim on retry. It may be empty; older provider responses omit it.
	ClaimsChallenge string

	// Scopes are the scopes the retried token request must ask for. Never empty.
	Scopes []string

	// CorrelationID is the provider correlation id, for diagnostics.
	CorrelationID string

	// Classification is the provider's categorization of the error.
	// Used for logging only, never for control flow.
	Classification string
}

// StepUpDetail carries the provider-reported fields of a challenge.
type StepUpDetail struct {
	ErrorCode       string
	ClaimsChallenge string
	CorrelationID   string
	Classification  string
}

// NewStepUpChallenge builds a step-up challenge. A challenge without scopes
// cannot be retried, so an empty scope set is rejected here rather than
// surfacing as a broken retry later.
func NewStepUpChallenge(scopes []string, detail StepUpDetail) (*StepUpChallengeError, error) {
	if len(scopes) == 0 {
		return nil, fmt.Errorf("step-up challenge requires at least one scope")
	}
	return &StepUpChallengeError{
		ErrorCode:       detail.ErrorCode,
		ClaimsChallenge: detail.ClaimsChallenge,
		Scopes:          scopes,
		CorrelationID:   detail.CorrelationID,
		Classification:  detail.Classification,
	}, nil
}

func (e *StepUpChallengeError) Error() string {
	return fmt.Sprintf("interactive authentication required (%s)", e.ErrorCode)
}
