package client

import (
	"context"
	"strconv"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
)

// ListWorkItemsOpts narrows a work item listing. A zero value lists the
// most recent work items across the organization.
type ListWorkItemsOpts struct {
	Project string
	Limit   int
}

func (c *Client) ListWorkItems(ctx context.Context, opts ListWorkItemsOpts) ([]devops.WorkItem, string, error) {
	builder := c.url().setPath(api.WorkItemsRoute)
	if opts.Project != "" {
		builder.addQueryParam("project", opts.Project)
	}
	if opts.Limit > 0 {
		builder.addQueryParam("limit", opts.Limit)
	}

	var resp api.WorkItemListResponse
	correlation, err := c.get(ctx, builder.build(), &resp)
	return resp.WorkItems, correlation, err
}

func (c *Client) GetWorkItem(ctx context.Context, id int) (*devops.WorkItem, string, error) {
	var item devops.WorkItem
	correlation, err := c.get(ctx, c.url().
		setPath(api.WorkItemsRoute+"/"+strconv.Itoa(id)).
		build(), &item)
	return &item, correlation, err
}

func (c *Client) CreateWorkItem(
	ctx context.Context,
	payload api.CreateWorkItemPayload,
) (*devops.WorkItem, string, error) {
	var item devops.WorkItem
	correlation, err := c.post(ctx, c.url().
		setPath(api.WorkItemsRoute).
		build(), payload, &item)
	return &item, correlation, err
}

func (c *Client) UpdateWorkItem(
	ctx context.Context,
	id int,
	fields map[string]any,
) (*devops.WorkItem, string, error) {
	var item devops.WorkItem
	correlation, err := c.patch(ctx, c.url().
		setPath(api.WorkItemsRoute+"/"+strconv.Itoa(id)).
		build(), api.UpdateWorkItemPayload{Fields: fields}, &item)
	return &item, correlation, err
}
