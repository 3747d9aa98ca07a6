package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/policy"
)

// Operation names used for policy evaluation and auditing.
const (
	OpProjectsList    = "projects.list"
	OpProjectsGet     = "projects.get"
	OpProjectsCreate  = "projects.create"
	OpProjectsDelete  = "projects.delete"
	OpWorkItemsList   = "workitems.list"
	OpWorkItemsGet    = "workitems.get"
	OpWorkItemsCreate = "workitems.create"
	OpWorkItemsUpdate = "workitems.update"
)

// DevOpsService serves the project and work item operations. For every call
// it prefers the caller's delegated credential from the request's credential
// context; when none is available, the configured rules decide whether the
// service identity may serve instead.
type DevOpsService struct {
	client   *devops.Client
	engine   *policy.Engine
	fallback core.TokenCredential // nil when no PAT is configured
	auditor  core.Auditor
}

func NewDevOpsService(client *devops.Client, engine *policy.Engine, fallback core.TokenCredential, auditor core.Auditor) *DevOpsService {
	return &DevOpsService{
		client:   client,
		engine:   engine,
		fallback: fallback,
		auditor:  auditor,
	}
}

// credentialFor resolves the credential to use for one operation and
// reports whether it is the caller's delegated credential.
func (s *DevOpsService) credentialFor(ctx context.Context, principal *core.Principal, operation string) (core.TokenCredential, bool, error) {
	if cc := auth.FromContext(ctx); cc != nil {
		if cred, ok := cc.DelegatedCredential(); ok {
			return cred, true, nil
		}
	}

	decision, err := s.engine.Evaluate(principal, operation)
	if err != nil {
		if errors.Is(err, policy.ErrNoRuleMatch) {
			return nil, false, NewAuthenticationError("delegated credentials required for %s", operation)
		}
		return nil, false, err
	}
	if !decision.AllowFallback || s.fallback == nil {
		return nil, false, NewAuthenticationError("delegated credentials required for %s", operation)
	}

	s.audit(ctx, core.AuditEntry{
		Action:     core.AuditActionPATFallback,
		SubjectID:  subjectID(principal),
		Operation:  operation,
		PolicyName: decision.RuleName,
		Success:    true,
	})
	return s.fallback, false, nil
}

// run executes one downstream call and records auth-relevant outcomes.
func (s *DevOpsService) run(ctx context.Context, principal *core.Principal, operation string, fn func(cred core.TokenCredential) error) error {
	cred, delegated, err := s.credentialFor(ctx, principal, operation)
	if err != nil {
		return err
	}

	if err := fn(cred); err != nil {
		var challenge *auth.StepUpChallengeError
		if errors.As(err, &challenge) {
			s.audit(ctx, core.AuditEntry{
				Action:    core.AuditActionStepUpRaised,
				SubjectID: subjectID(principal),
				Operation: operation,
				Scopes:    challenge.Scopes,
				Error:     challenge.ErrorCode,
			})
			log.Ctx(ctx).Info().
				Str("error_code", challenge.ErrorCode).
				Str("classification", challenge.Classification).
				Msg("step-up challenge raised")
		}
		return err
	}

	if delegated {
		s.audit(ctx, core.AuditEntry{
			Action:    core.AuditActionTokenExchange,
			SubjectID: subjectID(principal),
			Operation: operation,
			Success:   true,
		})
	}
	return nil
}

func (s *DevOpsService) ListProjects(ctx context.Context, principal *core.Principal) ([]devops.Project, error) {
	var projects []devops.Project
	err := s.run(ctx, principal, OpProjectsList, func(cred core.TokenCredential) error {
		var err error
		projects, err = s.client.ListProjects(ctx, cred)
		return err
	})
	return projects, err
}

func (s *DevOpsService) GetProject(ctx context.Context, principal *core.Principal, projectID string) (*devops.Project, error) {
	if projectID == "" {
		return nil, NewValidationError("project id is required")
	}
	var project *devops.Project
	err := s.run(ctx, principal, OpProjectsGet, func(cred core.TokenCredential) error {
		var err error
		project, err = s.client.GetProject(ctx, cred, projectID)
		return err
	})
	return project, err
}

func (s *DevOpsService) CreateProject(ctx context.Context, principal *core.Principal, req devops.CreateProjectRequest) (*devops.OperationRef, error) {
	if req.Name == "" {
		return nil, NewValidationError("project name is required")
	}
	var ref *devops.OperationRef
	err := s.run(ctx, principal, OpProjectsCreate, func(cred core.TokenCredential) error {
		var err error
		ref, err = s.client.CreateProject(ctx, cred, req)
		return err
	})
	return ref, err
}

func (s *DevOpsService) DeleteProject(ctx context.Context, principal *core.Principal, projectID string) (*devops.OperationRef, error) {
	if projectID == "" {
		return nil, NewValidationError("project id is required")
	}
	var ref *devops.OperationRef
	err := s.run(ctx, principal, OpProjectsDelete, func(cred core.TokenCredential) error {
		var err error
		ref, err = s.client.DeleteProject(ctx, cred, projectID)
		return err
	})
	return ref, err
}

func (s *DevOpsService) ListWorkItems(ctx context.Context, principal *core.Principal, project string, limit int) ([]devops.WorkItem, error) {
	if project == "" {
		return nil, NewValidationError("project is required")
	}
	var items []devops.WorkItem
	err := s.run(ctx, principal, OpWorkItemsList, func(cred core.TokenCredential) error {
		var err error
		items, err = s.client.ListWorkItems(ctx, cred, project, limit)
		return err
	})
	return items, err
}

func (s *DevOpsService) GetWorkItem(ctx context.Context, principal *core.Principal, id int) (*devops.WorkItem, error) {
	if id <= 0 {
		return nil, NewValidationError("work item id must be positive")
	}
	var item *devops.WorkItem
	err := s.run(ctx, principal, OpWorkItemsGet, func(cred core.TokenCredential) error {
		var err error
		item, err = s.client.GetWorkItem(ctx, cred, id)
		return err
	})
	return item, err
}

func (s *DevOpsService) CreateWorkItem(ctx context.Context, principal *core.Principal, project, workItemType string, fields map[string]any) (*devops.WorkItem, error) {
	if project == "" {
		return nil, NewValidationError("project is required")
	}
	if workItemType == "" {
		return nil, NewValidationError("work item type is required")
	}
	if _, ok := fields[devops.FieldTitle]; !ok {
		return nil, NewValidationError("field %s is required", devops.FieldTitle)
	}
	var item *devops.WorkItem
	err := s.run(ctx, principal, OpWorkItemsCreate, func(cred core.TokenCredential) error {
		var err error
		item, err = s.client.CreateWorkItem(ctx, cred, project, workItemType, fields)
		return err
	})
	return item, err
}

func (s *DevOpsService) UpdateWorkItem(ctx context.Context, principal *core.Principal, id int, fields map[string]any) (*devops.WorkItem, error) {
	if id <= 0 {
		return nil, NewValidationError("work item id must be positive")
	}
	if len(fields) == 0 {
		return nil, NewValidationError("at least one field is required")
	}
	var item *devops.WorkItem
	err := s.run(ctx, principal, OpWorkItemsUpdate, func(cred core.TokenCredential) error {
		var err error
		item, err = s.client.UpdateWorkItem(ctx, cred, id, fields)
		return err
	})
	return item, err
}

func (s *DevOpsService) audit(ctx context.Context, entry core.AuditEntry) {
	entry.ID, _ = ctx.Value("correlation_id").(string)
	entry.Time = time.Now()
	if err := s.auditor.Log(entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write audit log entry")
	}
}

func subjectID(principal *core.Principal) string {
	if principal == nil {
		return ""
	}
	return principal.ID
}
