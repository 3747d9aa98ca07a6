package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/buildinfo"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().
		setPath(api.AboutRoute).
		build(), &info)
	return &info, correlation, err
}

// Health reports whether the server answers its health probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url().
		setPath(api.HealthCheckRoute).
		build(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Me returns the identity the server resolved for the current token.
func (c *Client) Me(ctx context.Context) (*core.Principal, string, error) {
	var principal core.Principal
	correlation, err := c.get(ctx, c.url().
		setPath(api.MeRoute).
		build(), &principal)
	return &principal, correlation, err
}
