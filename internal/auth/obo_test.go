package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFactory(t *testing.T, authority string) *OnBehalfOfFactory {
	t.Helper()
	factory, err := NewOnBehalfOfFactory(OnBehalfOfConfig{
		TenantID:     "test-tenant",
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Authority:    authority,
	}, nil)
	if err != nil {
		t.Fatalf("NewOnBehalfOfFactory() error = %v", err)
	}
	return factory
}

func TestNewOnBehalfOfFactory_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OnBehalfOfConfig
		wantErr bool
	}{
		{
			name: "Complete",
			cfg:  OnBehalfOfConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		},
		{
			name:    "Missing Tenant",
			cfg:     OnBehalfOfConfig{ClientID: "c", ClientSecret: "s"},
			wantErr: true,
		},
		{
			name:    "Missing Client ID",
			cfg:     OnBehalfOfConfig{TenantID: "t", ClientSecret: "s"},
			wantErr: true,
		},
		{
			name:    "Missing Secret",
			cfg:     OnBehalfOfConfig{TenantID: "t", ClientID: "c"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOnBehalfOfFactory(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewOnBehalfOfFactory() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOnBehalfOfFactory_Mint_RequiresAssertion(t *testing.T) {
	factory := newTestFactory(t, "")
	if _, err := factory.Mint(""); err == nil {
		t.Error("Mint(\"\") expected an error")
	}
}

func TestOnBehalfOfCredential_GetToken(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if r.URL.Path != "/test-tenant/oauth2/v2.0/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("requested_token_use"); got != "on_behalf_of" {
			t.Errorf("requested_token_use = %q", got)
		}
		if got := r.PostForm.Get("assertion"); got != "user-assertion" {
			t.Errorf("assertion = %q", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "delegated-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	cred, err := newTestFactory(t, server.URL).Mint("user-assertion")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	scopes := []string{"499b84ac-1321-427f-aa17-267ca6975798/.default"}
	token, err := cred.GetToken(context.Background(), scopes)
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if token.Token != "delegated-token" {
		t.Errorf("Token = %q, want %q", token.Token, "delegated-token")
	}
	if token.Type != "Bearer" {
		t.Errorf("Type = %q, want Bearer", token.Type)
	}
	if !token.Valid(time.Now()) {
		t.Error("freshly issued token reported invalid")
	}

	// second call for the same scopes must come from the cache
	if _, err := cred.GetToken(context.Background(), scopes); err != nil {
		t.Fatalf("GetToken() second call error = %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}

	// different scopes are a different cache entry
	if _, err := cred.GetToken(context.Background(), []string{"other/.default", "user.read"}); err != nil {
		t.Fatalf("GetToken() other scopes error = %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("token endpoint called %d times, want 2", got)
	}

	// the cache key is order independent
	if _, err := cred.GetToken(context.Background(), []string{"user.read", "other/.default"}); err != nil {
		t.Fatalf("GetToken() reordered scopes error = %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("token endpoint called %d times after reorder, want 2", got)
	}
}

func TestOnBehalfOfCredential_GetToken_EmptyScopes(t *testing.T) {
	cred, err := newTestFactory(t, "http://invalid.localhost").Mint("user-assertion")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if _, err := cred.GetToken(context.Background(), nil); err == nil {
		t.Error("GetToken(nil scopes) expected an error")
	}
}

func TestOnBehalfOfCredential_StepUpChallenge(t *testing.T) {
	const claimsBlob = `{"access_token":{"acrs":{"essential":true,"value":"XYZ"}}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "AADSTS50079: The user is required to use multi-factor authentication.",
			"error_codes":       []int{50079},
			"suberror":          "basic_action",
			"correlation_id":    "corr-50079",
			"claims":            claimsBlob,
		})
	}))
	defer server.Close()

	cred, err := newTestFactory(t, server.URL).Mint("user-assertion")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	scopes := []string{"499b84ac-1321-427f-aa17-267ca6975798/.default"}
	_, err = cred.GetToken(context.Background(), scopes)

	var challenge *StepUpChallengeError
	if !errors.As(err, &challenge) {
		t.Fatalf("GetToken() error = %v, want StepUpChallengeError", err)
	}
	if challenge.ErrorCode != "AADSTS50079" {
		t.Errorf("ErrorCode = %q, want AADSTS50079", challenge.ErrorCode)
	}
	// the claims blob must survive byte for byte
	if challenge.ClaimsChallenge != claimsBlob {
		t.Errorf("ClaimsChallenge = %q, want %q", challenge.ClaimsChallenge, claimsBlob)
	}
	if challenge.CorrelationID != "corr-50079" {
		t.Errorf("CorrelationID = %q, want corr-50079", challenge.CorrelationID)
	}
	if challenge.Classification != "basic_action" {
		t.Errorf("Classification = %q, want basic_action", challenge.Classification)
	}
	if len(challenge.Scopes) != 1 || challenge.Scopes[0] != scopes[0] {
		t.Errorf("Scopes = %v, want %v", challenge.Scopes, scopes)
	}
}

func TestOnBehalfOfCredential_FatalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_client",
			"error_description": "AADSTS7000222: The provided client secret keys are expired.",
			"error_codes":       []int{7000222},
			"correlation_id":    "corr-fatal",
		})
	}))
	defer server.Close()

	cred, err := newTestFactory(t, server.URL).Mint("user-assertion")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	_, err = cred.GetToken(context.Background(), []string{"scope/.default"})

	var challenge *StepUpChallengeError
	if errors.As(err, &challenge) {
		t.Fatalf("fatal provider error must not surface as a step-up challenge, got %v", err)
	}

	var delegation *DelegationError
	if !errors.As(err, &delegation) {
		t.Fatalf("GetToken() error = %v, want DelegationError", err)
	}
	if delegation.ProviderError != "invalid_client" {
		t.Errorf("ProviderError = %q, want invalid_client", delegation.ProviderError)
	}
	if delegation.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want %d", delegation.StatusCode, http.StatusUnauthorized)
	}
}

func TestOnBehalfOfCredential_CancelledRequestNotCached(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "delegated-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	cred, err := newTestFactory(t, server.URL).Mint("user-assertion")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	obo, ok := cred.(*OnBehalfOfCredential)
	if !ok {
		t.Fatalf("Mint() returned %T, want *OnBehalfOfCredential", cred)
	}

	ctx, cancel := context.WithCancel(context.Background())
	scopes := []string{"scope/.default"}

	// simulate the caller abandoning the request while the exchange is in
	// flight: the result must be dropped, not cached
	token, err := obo.exchange(ctx, scopes)
	if err != nil {
		t.Fatalf("exchange() error = %v", err)
	}
	_ = token
	cancel()

	if _, err := obo.GetToken(ctx, scopes); !errors.Is(err, context.Canceled) {
		// a cancelled context may fail at transport level instead, but it
		// must never return a token
		if err == nil {
			t.Fatal("GetToken() with cancelled context returned a token")
		}
	}

	// a later request with a fresh context must hit the endpoint again
	before := requests.Load()
	if _, err := obo.GetToken(context.Background(), scopes); err != nil {
		t.Fatalf("GetToken() after cancel error = %v", err)
	}
	if requests.Load() == before {
		t.Error("expected a fresh token exchange after the cancelled request")
	}
}
