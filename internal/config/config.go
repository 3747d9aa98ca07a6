package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/policy"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Azure    AzureConfig    `yaml:"azure"`
	DevOps   DevOpsConfig   `yaml:"devops"`
	Verifier VerifierConfig `yaml:"verifier"`
	Rules    []policy.Rule  `yaml:"rules"`
	Audit    AuditConfig    `yaml:"audit"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AzureConfig holds the Entra ID confidential client registration used for
// the on-behalf-of grant. Immutable for the process lifetime.
type AzureConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// Authority overrides the login endpoint, mainly for tests.
	Authority string `yaml:"authority,omitempty"`

	// DownstreamScopes are the scopes requested for the delegated Azure
	// DevOps token. Defaults to the Azure DevOps resource default scope.
	DownstreamScopes []string `yaml:"downstream_scopes"`
}

// DevOpsConfig holds the Azure DevOps organization settings.
type DevOpsConfig struct {
	Organization string `yaml:"organization"`

	// BaseURL overrides https://dev.azure.com, mainly for tests.
	BaseURL string `yaml:"base_url,omitempty"`

	// PAT is the service identity used when policy allows falling back
	// from delegation. Optional.
	PAT string `yaml:"pat,omitempty"`
}

// VerifierConfig holds configuration for the inbound token verifier.
type VerifierConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "entra", "static"
	Config map[string]any `yaml:",inline"` // capture remaining fields
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
	Path    string `yaml:"path"`
}

// Load reads and parses the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.Azure.TenantID == "" {
		return fmt.Errorf("azure.tenant_id is required")
	}
	if c.Azure.ClientID == "" {
		return fmt.Errorf("azure.client_id is required")
	}
	if len(c.Azure.DownstreamScopes) == 0 {
		c.Azure.DownstreamScopes = []string{devops.DefaultScope}
	}

	if c.DevOps.Organization == "" {
		return fmt.Errorf("devops.organization is required")
	}

	if c.Verifier.Type == "" {
		c.Verifier.Type = "entra"
	}
	if c.Verifier.Name == "" {
		c.Verifier.Name = c.Verifier.Type
	}

	rules, err := policy.CompileRules(c.Rules)
	if err != nil {
		return fmt.Errorf("validating rules: %w", err)
	}
	c.Rules = rules

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "file":
			if c.Audit.Path == "" {
				return fmt.Errorf("audit.path is required for file audit")
			}
		case "memory", "":
		default:
			return fmt.Errorf("unknown audit type %q", c.Audit.Type)
		}
	}

	return nil
}
