package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

type principalCtxKey struct{}

// PrincipalCtx retrieves the authenticated caller from the context, or nil.
func PrincipalCtx(ctx context.Context) *core.Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*core.Principal)
	return p
}

// Authenticate verifies the inbound bearer token and owns the request's
// credential context: one fresh context per request, populated before any
// business logic runs, cleared when the request completes. Verification
// failures end the request here; business handlers below never see an
// unverified token.
func Authenticate(verifier core.Verifier, minter auth.CredentialMinter, auditor core.Auditor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken := bearerToken(r)
			if rawToken == "" {
				presenter.Error(w, r, "missing Authorization header",
					presenter.TypeAuthentication, http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			principal, err := verifier.Verify(ctx, rawToken)
			if err != nil {
				if auditor != nil {
					_ = auditor.Log(core.AuditEntry{
						ID:     CorrelationCtx(ctx),
						Time:   time.Now(),
						Action: core.AuditActionVerifyFailed,
						Error:  err.Error(),
					})
				}
				presenter.Error(w, r, "invalid authentication token",
					presenter.TypeAuthentication, http.StatusUnauthorized)
				return
			}

			cc := auth.NewCredentialContext(minter)
			cc.SetToken(rawToken)
			defer cc.Clear()

			ctx = context.WithValue(ctx, principalCtxKey{}, principal)
			ctx = auth.WithContext(ctx, cc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
