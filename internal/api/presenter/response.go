package presenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/service"
)

// Error type discriminators of the wire envelope. These are a compatibility
// surface: clients dispatch on them.
const (
	TypeMFARequired    = "mfa_required"
	TypeValidation     = "validation_error"
	TypeAuthentication = "authentication_error"
	TypeNotImplemented = "not_implemented_error"
	TypeServer         = "server_error"
)

// ErrorEnvelope is the JSON body of every error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`

	// Details is present only for step-up challenges.
	Details *ChallengeDetails `json:"details,omitempty"`
}

// ChallengeDetails carries everything the caller needs to satisfy a step-up
// challenge and retry. Field names are a compatibility surface.
type ChallengeDetails struct {
	ClaimsChallenge *string  `json:"claimsChallenge"`
	Scopes          []string `json:"scopes"`
	CorrelationID   *string  `json:"correlationId"`
	ErrorCode       string   `json:"errorCode"`
	Classification  string   `json:"classification"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

// Error writes a plain error envelope without details.
func Error(w http.ResponseWriter, r *http.Request, msg, errType string, status int) {
	JSON(w, r, ErrorEnvelope{Error: ErrorBody{
		Code:    status,
		Message: msg,
		Type:    errType,
	}}, status)
}

// Err is the single error boundary: it maps failures to wire responses,
// dispatching strictly on error kind. The step-up challenge is recognized by
// its type, never by matching provider message text, and is the only case
// that carries details through to the caller. Everything unrecognized
// becomes a generic 500; the real error is logged, never echoed.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	var (
		challenge     *auth.StepUpChallengeError
		validationErr *service.ValidationError
		authErr       *service.AuthenticationError
	)

	switch {
	case errors.As(err, &challenge):
		writeChallenge(w, r, challenge)

	case errors.As(err, &validationErr):
		Error(w, r, validationErr.Msg, TypeValidation, http.StatusBadRequest)

	case errors.As(err, &authErr):
		Error(w, r, authErr.Msg, TypeAuthentication, http.StatusUnauthorized)

	case errors.Is(err, service.ErrNotImplemented):
		Error(w, r, "Operation not implemented", TypeNotImplemented, http.StatusNotImplemented)

	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		Error(w, r, "Internal server error", TypeServer, http.StatusInternalServerError)
	}
}

func writeChallenge(w http.ResponseWriter, r *http.Request, challenge *auth.StepUpChallengeError) {
	// the claims blob is forwarded verbatim; %q would escape it
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer error="insufficient_claims", error_description="%s"`, challenge.ClaimsChallenge))

	details := &ChallengeDetails{
		ClaimsChallenge: optional(challenge.ClaimsChallenge),
		Scopes:          challenge.Scopes,
		CorrelationID:   optional(challenge.CorrelationID),
		ErrorCode:       challenge.ErrorCode,
		Classification:  challenge.Classification,
	}

	JSON(w, r, ErrorEnvelope{Error: ErrorBody{
		Code:    http.StatusUnauthorized,
		Message: "Multi-factor authentication is required",
		Type:    TypeMFARequired,
		Details: details,
	}}, http.StatusUnauthorized)
}

// optional maps the empty string onto a JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
