package verifier

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// StaticVerifier validates HMAC-signed tokens against a shared secret.
// For development and tests only; production deployments use the Entra
// verifier.
type StaticVerifier struct {
	name       string
	signingKey []byte
}

type staticOptions struct {
	SigningKey string `mapstructure:"signing_key"`
}

func NewStaticVerifier(cfg config.VerifierConfig) (*StaticVerifier, error) {
	var opts staticOptions
	if err := mapstructure.Decode(cfg.Config, &opts); err != nil {
		return nil, fmt.Errorf("decoding static verifier config: %w", err)
	}
	if opts.SigningKey == "" {
		return nil, fmt.Errorf("static verifier '%s' missing 'signing_key'", cfg.Name)
	}
	return &StaticVerifier{
		name:       cfg.Name,
		signingKey: []byte(opts.SigningKey),
	}, nil
}

func (s *StaticVerifier) Name() string {
	return s.name
}

func (s *StaticVerifier) Verify(_ context.Context, token string) (*core.Principal, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("static verification failed: %w", err)
	}

	return principalFromClaims(claims)
}
