package verifier

import (
	"context"
	"fmt"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// Build constructs the configured inbound verifier.
func Build(ctx context.Context, cfg config.VerifierConfig) (core.Verifier, error) {
	switch cfg.Type {
	case "entra":
		v, err := NewEntraVerifier(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("building entra verifier %q: %w", cfg.Name, err)
		}
		return v, nil
	case "static":
		v, err := NewStaticVerifier(cfg)
		if err != nil {
			return nil, fmt.Errorf("building static verifier %q: %w", cfg.Name, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown verifier type %q for verifier %q", cfg.Type, cfg.Name)
	}
}

// principalFromClaims maps verified token claims onto a Principal.
// The subject id prefers 'oid' (stable per user per tenant) over 'sub'
// (pairwise per app).
func principalFromClaims(claims map[string]any) (*core.Principal, error) {
	str := func(name string) string {
		v, _ := claims[name].(string)
		return v
	}

	id := str("oid")
	if id == "" {
		id = str("sub")
	}
	if id == "" {
		return nil, fmt.Errorf("token carries neither 'oid' nor 'sub' claim")
	}

	email := str("email")
	if email == "" {
		email = str("preferred_username")
	}

	return &core.Principal{
		ID:                id,
		Email:             email,
		Name:              str("name"),
		PreferredUsername: str("preferred_username"),
		Claims:            claims,
	}, nil
}
