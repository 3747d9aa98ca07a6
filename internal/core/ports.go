package core

import "context"

// TokenCredential produces access tokens for a downstream resource on demand.
// Implementations: on-behalf-of credential, PAT credential.
type TokenCredential interface {
	// GetToken returns a token valid for the requested scopes.
	GetToken(ctx context.Context, scopes []string) (AccessToken, error)
}

// Verifier validates inbound tokens at the authentication boundary.
// Implementations: Entra ID (OIDC discovery + JWKS), static shared-secret.
type Verifier interface {
	// Name returns the identifier of this verifier (as used in config).
	Name() string

	// Verify takes a raw token string, validates it, and returns a Principal.
	Verify(ctx context.Context, token string) (*Principal, error)
}
