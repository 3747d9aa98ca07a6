package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/audit"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// acceptVerifier accepts the token "good-token" and rejects everything else.
type acceptVerifier struct{}

func (acceptVerifier) Name() string { return "test" }

func (acceptVerifier) Verify(_ context.Context, token string) (*core.Principal, error) {
	if token != "good-token" {
		return nil, fmt.Errorf("unknown token")
	}
	return &core.Principal{ID: "user-42", Name: "Test User"}, nil
}

// passthroughMinter hands the assertion back as a static credential.
type passthroughMinter struct{}

func (passthroughMinter) Mint(assertion string) (core.TokenCredential, error) {
	return assertionCredential(assertion), nil
}

type assertionCredential string

func (a assertionCredential) GetToken(context.Context, []string) (core.AccessToken, error) {
	return core.AccessToken{Token: string(a), Type: core.TokenTypeBearer}, nil
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantAuditHit  bool
	}{
		{
			name:          "Valid Token",
			authorization: "Bearer good-token",
			wantStatus:    http.StatusOK,
		},
		{
			name:       "Missing Header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:          "Wrong Scheme",
			authorization: "Basic Zm9vOmJhcg==",
			wantStatus:    http.StatusUnauthorized,
		},
		{
			name:          "Rejected Token",
			authorization: "Bearer bad-token",
			wantStatus:    http.StatusUnauthorized,
			wantAuditHit:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := audit.NewInMemoryAuditor()

			var sawPrincipal *core.Principal
			var sawCredentialCtx bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawPrincipal = PrincipalCtx(r.Context())
				sawCredentialCtx = auth.FromContext(r.Context()) != nil
				w.WriteHeader(http.StatusOK)
			})

			handler := Authenticate(acceptVerifier{}, passthroughMinter{}, auditor)(next)

			req := httptest.NewRequest("GET", "/v1/projects", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK {
				if sawPrincipal == nil || sawPrincipal.ID != "user-42" {
					t.Errorf("handler principal = %+v, want user-42", sawPrincipal)
				}
				if !sawCredentialCtx {
					t.Error("handler saw no credential context")
				}
			} else {
				if sawPrincipal != nil {
					t.Error("handler ran despite failed authentication")
				}
				var envelope struct {
					Error struct {
						Type string `json:"type"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
					t.Fatalf("decoding body: %v", err)
				}
				if envelope.Error.Type != "authentication_error" {
					t.Errorf("error.type = %q, want authentication_error", envelope.Error.Type)
				}
			}

			entries, _ := auditor.GetRecent(10)
			if tt.wantAuditHit {
				if len(entries) != 1 || entries[0].Action != core.AuditActionVerifyFailed {
					t.Errorf("audit entries = %+v, want one %s entry", entries, core.AuditActionVerifyFailed)
				}
			} else if len(entries) != 0 {
				t.Errorf("audit entries = %+v, want none", entries)
			}
		})
	}
}
