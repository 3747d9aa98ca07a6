package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// subjectClaims is the fixed priority order for extracting the caller's
// stable identifier from an inbound token.
var subjectClaims = []string{
	"oid",
	"sub",
	"http://schemas.microsoft.com/identity/claims/objectidentifier",
}

// CredentialMinter turns a caller's assertion into a delegated credential.
type CredentialMinter interface {
	Mint(userAssertion string) (core.TokenCredential, error)
}

// CredentialContext holds the caller's inbound bearer token for the lifetime
// of exactly one request. It is allocated per request and never pooled or
// shared: request-scoped ownership, not locking, is the isolation boundary
// for the caller's secret material.
type CredentialContext struct {
	minter CredentialMinter

	rawToken  string
	subjectID string
}

func NewCredentialContext(minter CredentialMinter) *CredentialContext {
	return &CredentialContext{minter: minter}
}

// SetToken validates the token structurally and stores it together with the
// derived subject id. A token that fails parsing, or that carries no usable
// identifier, leaves the context exactly as if no token had been set: an
// unauthenticated caller is a normal, expected case for some routes, so this
// never returns an error.
//
// Full signature verification is the inbound authentication layer's job and
// has already happened by the time this is called.
func (c *CredentialContext) SetToken(token string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		c.Clear()
		log.Warn().Err(err).Msg("inbound token failed structural validation")
		return
	}

	for _, name := range subjectClaims {
		if v, ok := claims[name]; ok {
			if id, ok := v.(string); ok && id != "" {
				c.rawToken = token
				c.subjectID = id
				return
			}
		}
	}

	c.Clear()
	log.Warn().Msg("inbound token carries no usable subject claim")
}

// SubjectID returns the caller's stable identifier, if a token was set.
func (c *CredentialContext) SubjectID() (string, bool) {
	return c.subjectID, c.subjectID != ""
}

// DelegatedCredential returns a credential bound to the caller's token, or
// false when no token is set. Construction failures (e.g. misconfigured
// tenant or client) are logged and reported as absent rather than propagated,
// so callers have one code path: credential available, or fall back to a
// non-delegated identity.
func (c *CredentialContext) DelegatedCredential() (core.TokenCredential, bool) {
	if c.rawToken == "" || c.minter == nil {
		return nil, false
	}
	cred, err := c.minter.Mint(c.rawToken)
	if err != nil {
		log.Warn().Err(err).Msg("delegated credential unavailable")
		return nil, false
	}
	return cred, true
}

// Clear resets the context to the empty state. Calling it twice is
// equivalent to calling it once.
func (c *CredentialContext) Clear() {
	c.rawToken = ""
	c.subjectID = ""
}

type credentialCtxKey struct{}

// WithContext attaches the credential context to a request context.
func WithContext(ctx context.Context, cc *CredentialContext) context.Context {
	return context.WithValue(ctx, credentialCtxKey{}, cc)
}

// FromContext retrieves the request's credential context, or nil.
func FromContext(ctx context.Context) *CredentialContext {
	cc, _ := ctx.Value(credentialCtxKey{}).(*CredentialContext)
	return cc
}
