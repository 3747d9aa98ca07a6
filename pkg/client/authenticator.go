package client

import (
	"context"
	"errors"
)

// ErrInteractionRequired signals that a token cannot be acquired silently
// and the user has to sign in interactively.
var ErrInteractionRequired = errors.New("user interaction required to acquire token")

// Authenticator acquires access tokens for the agent API. The scopes are
// the ones the server's challenge demanded; when empty, the implementation
// falls back to its configured scopes. The claims parameter is the opaque
// claims challenge from a step-up response; it is empty for ordinary
// acquisitions and must be forwarded to the identity provider byte for
// byte when set.
type Authenticator interface {
	// Silent tries to acquire a token without user interaction, typically
	// from a cached refresh token. It returns ErrInteractionRequired when
	// the provider insists on an interactive sign-in.
	Silent(ctx context.Context, scopes []string, claims string) (string, error)

	// Interactive acquires a token with user interaction.
	Interactive(ctx context.Context, scopes []string, claims string) (string, error)
}
