package verifier

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/mitchellh/mapstructure"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// EntraVerifier validates inbound tokens against the tenant's OIDC metadata
// (discovery + JWKS signature verification). This is the inbound
// authentication layer; structural re-parsing further down the stack does not
// repeat this work.
type EntraVerifier struct {
	name     string
	verifier *oidc.IDTokenVerifier
}

type entraOptions struct {
	TenantID string `mapstructure:"tenant_id"`
	Audience string `mapstructure:"audience"`

	// IssuerURL overrides the derived login.microsoftonline.com issuer,
	// mainly for tests.
	IssuerURL string `mapstructure:"issuer_url"`
}

func NewEntraVerifier(ctx context.Context, cfg config.VerifierConfig) (*EntraVerifier, error) {
	var opts entraOptions
	if err := mapstructure.Decode(cfg.Config, &opts); err != nil {
		return nil, fmt.Errorf("decoding entra verifier config: %w", err)
	}
	if opts.TenantID == "" && opts.IssuerURL == "" {
		return nil, fmt.Errorf("entra verifier '%s' missing 'tenant_id'", cfg.Name)
	}
	if opts.Audience == "" {
		return nil, fmt.Errorf("entra verifier '%s' missing 'audience'", cfg.Name)
	}

	issuerURL := opts.IssuerURL
	if issuerURL == "" {
		issuerURL = fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", opts.TenantID)
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("creating oidc provider for verifier '%s': %w", cfg.Name, err)
	}

	return &EntraVerifier{
		name:     cfg.Name,
		verifier: provider.Verifier(&oidc.Config{ClientID: opts.Audience}),
	}, nil
}

func (v *EntraVerifier) Name() string {
	return v.name
}

func (v *EntraVerifier) Verify(ctx context.Context, token string) (*core.Principal, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("oidc verification failed: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting oidc claims: %w", err)
	}

	return principalFromClaims(claims)
}
