package client

import (
	"context"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// ListAudits retrieves the latest audit entries from the server, limited to
// the specified number.
func (c *Client) ListAudits(ctx context.Context, limit uint) ([]core.AuditEntry, string, error) {
	var entries []core.AuditEntry
	correlation, err := c.get(ctx, c.url().
		setPath(api.ListAuditsRoute).
		addQueryParam("limit", limit).
		build(), &entries)
	return entries, correlation, err
}
