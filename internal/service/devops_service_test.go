package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/audit"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/policy"
)

// fixedCredential returns a constant bearer token.
type fixedCredential string

func (f fixedCredential) GetToken(context.Context, []string) (core.AccessToken, error) {
	return core.AccessToken{Token: string(f), Type: core.TokenTypeBearer}, nil
}

// challengedCredential always raises a step-up challenge.
type challengedCredential struct{}

func (challengedCredential) GetToken(_ context.Context, scopes []string) (core.AccessToken, error) {
	challenge, err := auth.NewStepUpChallenge(scopes, auth.StepUpDetail{
		ErrorCode:       "AADSTS50079",
		ClaimsChallenge: "opaque-claims",
		CorrelationID:   "corr-1",
	})
	if err != nil {
		return core.AccessToken{}, err
	}
	return core.AccessToken{}, challenge
}

// fixedMinter mints the same credential for every assertion.
type fixedMinter struct {
	cred core.TokenCredential
}

func (m fixedMinter) Mint(string) (core.TokenCredential, error) {
	return m.cred, nil
}

func delegatedContext(t *testing.T, cred core.TokenCredential) context.Context {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"oid": "user-42"}).
		SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	cc := auth.NewCredentialContext(fixedMinter{cred: cred})
	cc.SetToken(token)
	return auth.WithContext(context.Background(), cc)
}

// newBackend returns a devops API stub that records the Authorization header
// of the last projects request.
func newBackend(t *testing.T, lastAuth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*lastAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"value": []map[string]any{{"id": "p1", "name": "Alpha"}},
		})
	}))
}

func TestDevOpsService_PrefersDelegatedCredential(t *testing.T) {
	var lastAuth string
	backend := newBackend(t, &lastAuth)
	defer backend.Close()

	auditor := audit.NewInMemoryAuditor()
	svc := NewDevOpsService(
		devops.NewClient("org", devops.WithBaseURL(backend.URL)),
		policy.New(nil),
		fixedCredential("service-pat"),
		auditor,
	)

	ctx := delegatedContext(t, fixedCredential("delegated-token"))
	principal := &core.Principal{ID: "user-42"}

	if _, err := svc.ListProjects(ctx, principal); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if lastAuth != "Bearer delegated-token" {
		t.Errorf("Authorization = %q, want the delegated token", lastAuth)
	}

	// the delegated use is audited as a token exchange, nothing else
	entries, _ := auditor.GetRecent(10)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Action != core.AuditActionTokenExchange {
		t.Errorf("Action = %q, want %q", entry.Action, core.AuditActionTokenExchange)
	}
	if entry.SubjectID != "user-42" {
		t.Errorf("SubjectID = %q, want user-42", entry.SubjectID)
	}
	if entry.Operation != OpProjectsList {
		t.Errorf("Operation = %q, want %q", entry.Operation, OpProjectsList)
	}
	if !entry.Success {
		t.Error("Success = false, want true")
	}
}

func TestDevOpsService_FallbackByDefaultPolicy(t *testing.T) {
	var lastAuth string
	backend := newBackend(t, &lastAuth)
	defer backend.Close()

	auditor := audit.NewInMemoryAuditor()
	svc := NewDevOpsService(
		devops.NewClient("org", devops.WithBaseURL(backend.URL)),
		policy.New(nil),
		fixedCredential("service-pat"),
		auditor,
	)

	// no credential context: simulates a verified caller whose delegated
	// credential could not be established
	principal := &core.Principal{ID: "user-42"}
	if _, err := svc.ListProjects(context.Background(), principal); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if lastAuth != "Bearer service-pat" {
		t.Errorf("Authorization = %q, want the service identity", lastAuth)
	}

	entries, _ := auditor.GetRecent(10)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Action != core.AuditActionPATFallback {
		t.Errorf("Action = %q, want %q", entry.Action, core.AuditActionPATFallback)
	}
	if entry.SubjectID != "user-42" {
		t.Errorf("SubjectID = %q, want user-42", entry.SubjectID)
	}
	if entry.Operation != OpProjectsList {
		t.Errorf("Operation = %q, want %q", entry.Operation, OpProjectsList)
	}
	if entry.PolicyName != "default" {
		t.Errorf("PolicyName = %q, want default", entry.PolicyName)
	}
}

func TestDevOpsService_FallbackDenied(t *testing.T) {
	rules, err := policy.CompileRules([]policy.Rule{
		{Name: "deny-all", AllowFallback: false},
	})
	if err != nil {
		t.Fatalf("CompileRules() error = %v", err)
	}

	tests := []struct {
		name     string
		engine   *policy.Engine
		fallback core.TokenCredential
	}{
		{
			name:     "Rule Denies",
			engine:   policy.New(rules),
			fallback: fixedCredential("service-pat"),
		},
		{
			name:     "No Fallback Configured",
			engine:   policy.New(nil),
			fallback: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDevOpsService(
				devops.NewClient("org"),
				tt.engine,
				tt.fallback,
				audit.NewInMemoryAuditor(),
			)

			_, err := svc.ListProjects(context.Background(), &core.Principal{ID: "user-42"})

			var authErr *AuthenticationError
			if !errors.As(err, &authErr) {
				t.Fatalf("ListProjects() error = %v, want AuthenticationError", err)
			}
		})
	}
}

func TestDevOpsService_NoRuleMatchDeniesFallback(t *testing.T) {
	rules, err := policy.CompileRules([]policy.Rule{
		{Name: "reads-only", Match: policy.Match{Operations: []string{OpProjectsList}}, AllowFallback: true},
	})
	if err != nil {
		t.Fatalf("CompileRules() error = %v", err)
	}

	svc := NewDevOpsService(
		devops.NewClient("org"),
		policy.New(rules),
		fixedCredential("service-pat"),
		audit.NewInMemoryAuditor(),
	)

	_, err = svc.DeleteProject(context.Background(), &core.Principal{ID: "user-42"}, "p1")

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("DeleteProject() error = %v, want AuthenticationError", err)
	}
}

func TestDevOpsService_StepUpChallengePropagatesAndAudits(t *testing.T) {
	auditor := audit.NewInMemoryAuditor()
	svc := NewDevOpsService(
		devops.NewClient("org"),
		policy.New(nil),
		nil,
		auditor,
	)

	ctx := delegatedContext(t, challengedCredential{})
	principal := &core.Principal{ID: "user-42"}

	_, err := svc.ListProjects(ctx, principal)

	var challenge *auth.StepUpChallengeError
	if !errors.As(err, &challenge) {
		t.Fatalf("ListProjects() error = %v, want StepUpChallengeError", err)
	}
	if challenge.ClaimsChallenge != "opaque-claims" {
		t.Errorf("ClaimsChallenge = %q, want opaque-claims", challenge.ClaimsChallenge)
	}

	entries, _ := auditor.GetRecent(10)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != core.AuditActionStepUpRaised {
		t.Errorf("Action = %q, want %q", entries[0].Action, core.AuditActionStepUpRaised)
	}
	if entries[0].Error != "AADSTS50079" {
		t.Errorf("Error = %q, want AADSTS50079", entries[0].Error)
	}
}

func TestDevOpsService_InputValidation(t *testing.T) {
	svc := NewDevOpsService(devops.NewClient("org"), policy.New(nil), nil, audit.NewInMemoryAuditor())
	principal := &core.Principal{ID: "user-42"}
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"Empty Project ID", func() error { _, err := svc.GetProject(ctx, principal, ""); return err }},
		{"Empty Project Name", func() error {
			_, err := svc.CreateProject(ctx, principal, devops.CreateProjectRequest{})
			return err
		}},
		{"Empty Work Item Project", func() error { _, err := svc.ListWorkItems(ctx, principal, "", 0); return err }},
		{"Non Positive Work Item ID", func() error { _, err := svc.GetWorkItem(ctx, principal, 0); return err }},
		{"Missing Title", func() error {
			_, err := svc.CreateWorkItem(ctx, principal, "Alpha", "Bug", map[string]any{})
			return err
		}},
		{"Empty Update", func() error { _, err := svc.UpdateWorkItem(ctx, principal, 1, nil); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}
