package audit

import (
	"fmt"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/config"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// Build constructs the configured auditor. Disabled audit yields a noop.
func Build(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "file":
		auditor, err := NewFileAuditor(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("building file auditor: %w", err)
		}
		return auditor, nil
	case "memory", "":
		return NewInMemoryAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}
