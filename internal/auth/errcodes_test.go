package auth

import "testing"

func TestIsInteractionRequired(t *testing.T) {
	tests := []struct {
		name       string
		oauthError string
		codes      []int
		want       bool
	}{
		{name: "MFA Required", oauthError: "invalid_grant", codes: []int{50076}, want: true},
		{name: "MFA Enrollment", oauthError: "invalid_grant", codes: []int{50079}, want: true},
		{name: "External Challenge", oauthError: "invalid_grant", codes: []int{50158}, want: true},
		{name: "Compliant Device", oauthError: "invalid_grant", codes: []int{53000}, want: true},
		{name: "Domain Joined Device", oauthError: "invalid_grant", codes: []int{53001}, want: true},
		{name: "Location Blocked", oauthError: "invalid_grant", codes: []int{53002}, want: true},
		{name: "Conditional Access", oauthError: "invalid_grant", codes: []int{53003}, want: true},
		{name: "Consent Required", oauthError: "invalid_grant", codes: []int{65001}, want: true},
		{name: "Interaction Required String", oauthError: "interaction_required", codes: nil, want: true},
		{name: "Secondary Code Matches", oauthError: "invalid_grant", codes: []int{700016, 50079}, want: true},
		{name: "Invalid Client", oauthError: "invalid_client", codes: []int{700016}, want: false},
		{name: "Expired Secret", oauthError: "invalid_client", codes: []int{7000222}, want: false},
		{name: "No Codes No Match", oauthError: "invalid_grant", codes: nil, want: false},
		{name: "Empty", oauthError: "", codes: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInteractionRequired(tt.oauthError, tt.codes); got != tt.want {
				t.Errorf("isInteractionRequired(%q, %v) = %v, want %v", tt.oauthError, tt.codes, got, tt.want)
			}
		})
	}
}
