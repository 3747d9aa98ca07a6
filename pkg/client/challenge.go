package client

import (
	"fmt"
	"net/http"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
)

// Challenge is returned when the server demands step-up authentication. It
// carries the opaque claims challenge which must be passed to the identity
// provider unmodified.
type Challenge struct {
	Message         string
	ClaimsChallenge string
	Scopes          []string
	CorrelationID   string
	ErrorCode       string
	Classification  string
}

func (c *Challenge) Error() string {
	return fmt.Sprintf("step-up authentication required (%s)", c.ErrorCode)
}

// StepUpFailedError is terminal: the challenge could not be satisfied, either
// because reauthentication failed or because the replayed request was
// challenged again.
type StepUpFailedError struct {
	Challenge *Challenge
	Err       error
}

func (e *StepUpFailedError) Error() string {
	return fmt.Sprintf("step-up authentication failed: %v", e.Err)
}

func (e *StepUpFailedError) Unwrap() error {
	return e.Err
}

// challengeFromEnvelope builds a Challenge from a decoded error envelope,
// or nil if the response is not a step-up challenge. A challenge is a 401
// AND a body of type mfa_required; a stray mfa_required body on any other
// status must not trigger re-authentication.
func challengeFromEnvelope(status int, envelope presenter.ErrorEnvelope) *Challenge {
	if status != http.StatusUnauthorized || envelope.Error.Type != presenter.TypeMFARequired {
		return nil
	}
	challenge := &Challenge{Message: envelope.Error.Message}
	if details := envelope.Error.Details; details != nil {
		if details.ClaimsChallenge != nil {
			challenge.ClaimsChallenge = *details.ClaimsChallenge
		}
		if details.CorrelationID != nil {
			challenge.CorrelationID = *details.CorrelationID
		}
		challenge.Scopes = details.Scopes
		challenge.ErrorCode = details.ErrorCode
		challenge.Classification = details.Classification
	}
	return challenge
}
