package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

const (
	defaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.1"

	// DefaultScope is the delegated scope for the Azure DevOps resource.
	// 499b84ac-1321-427f-aa17-267ca6975798 is the well-known Azure DevOps
	// application id.
	DefaultScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"
)

// APIError is a non-2xx response from Azure DevOps.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure devops api error: %s (status %d)", e.Message, e.StatusCode)
}

// Client is a thin REST client for the Azure DevOps organization APIs.
// It never owns a credential: every call is made with the credential the
// caller passes in, so delegated and service identities share one code path.
type Client struct {
	baseURL      string
	organization string
	scopes       []string
	httpClient   *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithScopes overrides the delegated scopes requested from credentials.
func WithScopes(scopes []string) Option {
	return func(c *Client) {
		c.scopes = scopes
	}
}

func NewClient(organization string, opts ...Option) *Client {
	c := &Client{
		baseURL:      defaultBaseURL,
		organization: organization,
		scopes:       []string{DefaultScope},
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProjects returns the organization's team projects.
func (c *Client) ListProjects(ctx context.Context, cred core.TokenCredential) ([]Project, error) {
	var result projectList
	if err := c.do(ctx, cred, http.MethodGet, "_apis/projects", nil, nil, &result); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return result.Value, nil
}

// GetProject returns one project by id or name.
func (c *Client) GetProject(ctx context.Context, cred core.TokenCredential, projectID string) (*Project, error) {
	var result Project
	if err := c.do(ctx, cred, http.MethodGet, "_apis/projects/"+url.PathEscape(projectID), nil, nil, &result); err != nil {
		return nil, fmt.Errorf("getting project %q: %w", projectID, err)
	}
	return &result, nil
}

// CreateProject queues creation of a new team project and returns the
// operation reference; project creation is asynchronous on the server.
func (c *Client) CreateProject(ctx context.Context, cred core.TokenCredential, req CreateProjectRequest) (*OperationRef, error) {
	sourceControl := req.SourceControlType
	if sourceControl == "" {
		sourceControl = "Git"
	}
	template := req.ProcessTemplateID
	if template == "" {
		// Agile process template
		template = "adcc42ab-9882-485e-a3ed-7678f01f66bc"
	}

	payload := map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"visibility":  req.Visibility,
		"capabilities": map[string]any{
			"versioncontrol":  map[string]string{"sourceControlType": sourceControl},
			"processTemplate": map[string]string{"templateTypeId": template},
		},
	}

	var result OperationRef
	if err := c.do(ctx, cred, http.MethodPost, "_apis/projects", nil, payload, &result); err != nil {
		return nil, fmt.Errorf("creating project %q: %w", req.Name, err)
	}
	return &result, nil
}

// DeleteProject queues deletion of a team project.
func (c *Client) DeleteProject(ctx context.Context, cred core.TokenCredential, projectID string) (*OperationRef, error) {
	var result OperationRef
	if err := c.do(ctx, cred, http.MethodDelete, "_apis/projects/"+url.PathEscape(projectID), nil, nil, &result); err != nil {
		return nil, fmt.Errorf("deleting project %q: %w", projectID, err)
	}
	return &result, nil
}

// ListWorkItems queries the most recently changed work items of a project.
func (c *Client) ListWorkItems(ctx context.Context, cred core.TokenCredential, project string, limit int) ([]WorkItem, error) {
	if limit <= 0 {
		limit = 50
	}

	wiql := wiqlRequest{
		Query: fmt.Sprintf(
			"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' ORDER BY [System.ChangedDate] DESC",
			strings.ReplaceAll(project, "'", "''")),
	}
	var queryResult wiqlResponse
	path := url.PathEscape(project) + "/_apis/wit/wiql"
	if err := c.do(ctx, cred, http.MethodPost, path, url.Values{"$top": []string{fmt.Sprint(limit)}}, wiql, &queryResult); err != nil {
		return nil, fmt.Errorf("querying work items: %w", err)
	}
	if len(queryResult.WorkItems) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(queryResult.WorkItems))
	for _, ref := range queryResult.WorkItems {
		ids = append(ids, fmt.Sprint(ref.ID))
	}

	var result workItemList
	query := url.Values{"ids": []string{strings.Join(ids, ",")}}
	if err := c.do(ctx, cred, http.MethodGet, "_apis/wit/workitems", query, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching work items: %w", err)
	}
	return result.Value, nil
}

// GetWorkItem returns one work item by id.
func (c *Client) GetWorkItem(ctx context.Context, cred core.TokenCredential, id int) (*WorkItem, error) {
	var result WorkItem
	if err := c.do(ctx, cred, http.MethodGet, fmt.Sprintf("_apis/wit/workitems/%d", id), nil, nil, &result); err != nil {
		return nil, fmt.Errorf("getting work item %d: %w", id, err)
	}
	return &result, nil
}

// CreateWorkItem creates a work item of the given type in a project.
// The fields map uses reference names, e.g. System.Title.
func (c *Client) CreateWorkItem(ctx context.Context, cred core.TokenCredential, project, workItemType string, fields map[string]any) (*WorkItem, error) {
	path := url.PathEscape(project) + "/_apis/wit/workitems/$" + url.PathEscape(workItemType)
	var result WorkItem
	if err := c.doPatch(ctx, cred, http.MethodPost, path, patchDocument(fields), &result); err != nil {
		return nil, fmt.Errorf("creating %s work item: %w", workItemType, err)
	}
	return &result, nil
}

// UpdateWorkItem updates fields of an existing work item.
func (c *Client) UpdateWorkItem(ctx context.Context, cred core.TokenCredential, id int, fields map[string]any) (*WorkItem, error) {
	var result WorkItem
	if err := c.doPatch(ctx, cred, http.MethodPatch, fmt.Sprintf("_apis/wit/workitems/%d", id), patchDocument(fields), &result); err != nil {
		return nil, fmt.Errorf("updating work item %d: %w", id, err)
	}
	return &result, nil
}

func patchDocument(fields map[string]any) []patchOperation {
	doc := make([]patchOperation, 0, len(fields))
	for name, value := range fields {
		doc = append(doc, patchOperation{
			Op:    "add",
			Path:  "/fields/" + name,
			Value: value,
		})
	}
	return doc
}

func (c *Client) do(ctx context.Context, cred core.TokenCredential, method, path string, query url.Values, payload, result any) error {
	return c.send(ctx, cred, method, path, query, payload, "application/json", result)
}

func (c *Client) doPatch(ctx context.Context, cred core.TokenCredential, method, path string, doc []patchOperation, result any) error {
	return c.send(ctx, cred, method, path, nil, doc, "application/json-patch+json", result)
}

func (c *Client) send(ctx context.Context, cred core.TokenCredential, method, path string, query url.Values, payload any, contentType string, result any) error {
	token, err := cred.GetToken(ctx, c.scopes)
	if err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, url.PathEscape(c.organization), path, query.Encode())

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", token.Type+" "+token.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func(b io.ReadCloser) {
		_ = b.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
