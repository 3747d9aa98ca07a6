package client

import (
	"context"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
)

// ListProjects retrieves the projects of the configured organization.
func (c *Client) ListProjects(ctx context.Context) ([]devops.Project, string, error) {
	var resp api.ProjectListResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.ProjectsRoute).
		build(), &resp)
	return resp.Projects, correlation, err
}

func (c *Client) GetProject(ctx context.Context, id string) (*devops.Project, string, error) {
	var project devops.Project
	correlation, err := c.get(ctx, c.url().
		setPath(api.ProjectsRoute+"/"+id).
		build(), &project)
	return &project, correlation, err
}

// CreateProject queues the creation of a new project. Creation is
// asynchronous on the provider side; the returned reference tracks the
// provisioning operation.
func (c *Client) CreateProject(
	ctx context.Context,
	payload api.CreateProjectPayload,
) (*devops.OperationRef, string, error) {
	var ref devops.OperationRef
	correlation, err := c.post(ctx, c.url().
		setPath(api.ProjectsRoute).
		build(), payload, &ref)
	return &ref, correlation, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) (*devops.OperationRef, string, error) {
	var ref devops.OperationRef
	correlation, err := c.send(ctx, "DELETE", c.url().
		setPath(api.ProjectsRoute+"/"+id).
		build(), nil, &ref)
	return &ref, correlation, err
}
