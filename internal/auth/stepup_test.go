package auth

import (
	"reflect"
	"testing"
)

func TestNewStepUpChallenge(t *testing.T) {
	tests := []struct {
		name    string
		scopes  []string
		detail  StepUpDetail
		wantErr bool
	}{
		{
			name:   "Full Detail",
			scopes: []string{"https://dev.azure.com/.default"},
			detail: StepUpDetail{
				ErrorCode:       "AADSTS50079",
				ClaimsChallenge: `{"access_token":{"acrs":{"essential":true,"value":"c1"}}}`,
				CorrelationID:   "corr-1",
				Classification:  "basic_action",
			},
		},
		{
			name:   "No Claims Challenge",
			scopes: []string{"scope-a", "scope-b"},
			detail: StepUpDetail{ErrorCode: "AADSTS50076"},
		},
		{
			name:    "Empty Scopes Rejected",
			scopes:  nil,
			detail:  StepUpDetail{ErrorCode: "AADSTS50079"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge, err := NewStepUpChallenge(tt.scopes, tt.detail)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStepUpChallenge() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if challenge.ErrorCode != tt.detail.ErrorCode {
				t.Errorf("ErrorCode = %q, want %q", challenge.ErrorCode, tt.detail.ErrorCode)
			}
			if challenge.ClaimsChallenge != tt.detail.ClaimsChallenge {
				t.Errorf("ClaimsChallenge = %q, want %q", challenge.ClaimsChallenge, tt.detail.ClaimsChallenge)
			}
			if challenge.CorrelationID != tt.detail.CorrelationID {
				t.Errorf("CorrelationID = %q, want %q", challenge.CorrelationID, tt.detail.CorrelationID)
			}
			if challenge.Classification != tt.detail.Classification {
				t.Errorf("Classification = %q, want %q", challenge.Classification, tt.detail.Classification)
			}
			if !reflect.DeepEqual(challenge.Scopes, tt.scopes) {
				t.Errorf("Scopes = %v, want %v", challenge.Scopes, tt.scopes)
			}
		})
	}
}

func TestStepUpChallengeError_Error(t *testing.T) {
	challenge, err := NewStepUpChallenge([]string{"s"}, StepUpDetail{ErrorCode: "AADSTS50079"})
	if err != nil {
		t.Fatalf("NewStepUpChallenge() error = %v", err)
	}
	want := "interactive authentication required (AADSTS50079)"
	if got := challenge.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
