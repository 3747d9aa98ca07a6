package presenter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/service"
)

func TestErr_Dispatch(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
	}{
		{
			name:        "Validation Error",
			err:         service.NewValidationError("name is required"),
			wantStatus:  http.StatusBadRequest,
			wantType:    TypeValidation,
			wantMessage: "name is required",
		},
		{
			name:        "Authentication Error",
			err:         service.NewAuthenticationError("delegated credentials required for projects.create"),
			wantStatus:  http.StatusUnauthorized,
			wantType:    TypeAuthentication,
			wantMessage: "delegated credentials required for projects.create",
		},
		{
			name:        "Not Implemented",
			err:         service.ErrNotImplemented,
			wantStatus:  http.StatusNotImplemented,
			wantType:    TypeNotImplemented,
			wantMessage: "Operation not implemented",
		},
		{
			name:        "Wrapped Not Implemented",
			err:         fmt.Errorf("audits: %w", service.ErrNotImplemented),
			wantStatus:  http.StatusNotImplemented,
			wantType:    TypeNotImplemented,
			wantMessage: "Operation not implemented",
		},
		{
			name:       "Unknown Error Is Opaque",
			err:        fmt.Errorf("pq: connection refused to 10.0.0.3"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeServer,
			// the real error must never be echoed to the caller
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/v1/projects", nil)

			Err(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var envelope ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if envelope.Error.Code != tt.wantStatus {
				t.Errorf("error.code = %d, want %d", envelope.Error.Code, tt.wantStatus)
			}
			if envelope.Error.Type != tt.wantType {
				t.Errorf("error.type = %q, want %q", envelope.Error.Type, tt.wantType)
			}
			if envelope.Error.Message != tt.wantMessage {
				t.Errorf("error.message = %q, want %q", envelope.Error.Message, tt.wantMessage)
			}
			if envelope.Error.Details != nil {
				t.Error("error.details present on a non-challenge response")
			}
		})
	}
}

func TestErr_StepUpChallenge(t *testing.T) {
	const claimsBlob = `{"access_token":{"acrs":{"essential":true,"value":"XYZ"}}}`

	challenge, err := auth.NewStepUpChallenge(
		[]string{"499b84ac-1321-427f-aa17-267ca6975798/.default"},
		auth.StepUpDetail{
			ErrorCode:       "AADSTS50079",
			ClaimsChallenge: claimsBlob,
			CorrelationID:   "corr-1",
			Classification:  "basic_action",
		})
	if err != nil {
		t.Fatalf("NewStepUpChallenge() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/workitems", nil)

	// the challenge arrives wrapped, as it does from the service layer
	Err(rec, req, fmt.Errorf("workitems.list: %w", challenge))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	wantHeader := fmt.Sprintf(`Bearer error="insufficient_claims", error_description="%s"`, claimsBlob)
	if got := rec.Header().Get("WWW-Authenticate"); got != wantHeader {
		t.Errorf("WWW-Authenticate = %q, want %q", got, wantHeader)
	}

	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if envelope.Error.Type != TypeMFARequired {
		t.Errorf("error.type = %q, want %q", envelope.Error.Type, TypeMFARequired)
	}

	details := envelope.Error.Details
	if details == nil {
		t.Fatal("error.details missing on a challenge response")
	}
	if details.ClaimsChallenge == nil || *details.ClaimsChallenge != claimsBlob {
		t.Errorf("claimsChallenge = %v, want %q verbatim", details.ClaimsChallenge, claimsBlob)
	}
	if details.CorrelationID == nil || *details.CorrelationID != "corr-1" {
		t.Errorf("correlationId = %v, want corr-1", details.CorrelationID)
	}
	if details.ErrorCode != "AADSTS50079" {
		t.Errorf("errorCode = %q, want AADSTS50079", details.ErrorCode)
	}
	if details.Classification != "basic_action" {
		t.Errorf("classification = %q, want basic_action", details.Classification)
	}
	if len(details.Scopes) != 1 || details.Scopes[0] != "499b84ac-1321-427f-aa17-267ca6975798/.default" {
		t.Errorf("scopes = %v", details.Scopes)
	}
}

func TestErr_StepUpChallengeWithoutClaims(t *testing.T) {
	challenge, err := auth.NewStepUpChallenge([]string{"scope"}, auth.StepUpDetail{ErrorCode: "AADSTS50076"})
	if err != nil {
		t.Fatalf("NewStepUpChallenge() error = %v", err)
	}

	rec := httptest.NewRecorder()
	Err(rec, httptest.NewRequest("GET", "/v1/projects", nil), challenge)

	// absent optional fields must encode as JSON null, not empty strings
	var raw struct {
		Error struct {
			Details map[string]json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got := string(raw.Error.Details["claimsChallenge"]); got != "null" {
		t.Errorf("claimsChallenge = %s, want null", got)
	}
	if got := string(raw.Error.Details["correlationId"]); got != "null" {
		t.Errorf("correlationId = %s, want null", got)
	}
}
