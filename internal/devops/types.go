package devops

import "time"

// Project is an Azure DevOps team project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	URL         string `json:"url,omitempty"`
}

type projectList struct {
	Count int       `json:"count"`
	Value []Project `json:"value"`
}

// CreateProjectRequest describes a new team project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility,omitempty"`

	// SourceControlType defaults to Git.
	SourceControlType string `json:"-"`

	// ProcessTemplateID defaults to the Agile process.
	ProcessTemplateID string `json:"-"`
}

// OperationRef tracks a long-running server-side operation, e.g. project
// creation.
type OperationRef struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// WorkItem is an Azure DevOps work item.
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev,omitempty"`
	Fields map[string]any `json:"fields"`
	URL    string         `json:"url,omitempty"`
}

type workItemList struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// Well-known work item field reference names.
const (
	FieldTitle        = "System.Title"
	FieldDescription  = "System.Description"
	FieldState        = "System.State"
	FieldWorkItemType = "System.WorkItemType"
	FieldChangedDate  = "System.ChangedDate"
)

// patchOperation is one entry of a JSON Patch document, which the work item
// endpoints require.
type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type workItemRef struct {
	ID int `json:"id"`
}

type wiqlResponse struct {
	WorkItems []workItemRef `json:"workItems"`
	AsOf      time.Time     `json:"asOf"`
}
