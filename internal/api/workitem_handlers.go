package api

import (
	"net/http"
	"strconv"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/middleware"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
)

type WorkItemListResponse struct {
	WorkItems []devops.WorkItem `json:"workItems"`
	Count     int               `json:"count"`
}

type CreateWorkItemPayload struct {
	Project string         `json:"project"`
	Type    string         `json:"type"`
	Fields  map[string]any `json:"fields"`
}

type UpdateWorkItemPayload struct {
	Fields map[string]any `json:"fields"`
}

func (s *Server) handleListWorkItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			presenter.Error(w, r, "limit must be a positive integer", presenter.TypeValidation, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := s.devops.ListWorkItems(ctx, middleware.PrincipalCtx(ctx), r.URL.Query().Get("project"), limit)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, WorkItemListResponse{WorkItems: items, Count: len(items)}, http.StatusOK)
}

func (s *Server) handleGetWorkItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		presenter.Error(w, r, "work item id must be an integer", presenter.TypeValidation, http.StatusBadRequest)
		return
	}

	item, err := s.devops.GetWorkItem(ctx, middleware.PrincipalCtx(ctx), id)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, item, http.StatusOK)
}

func (s *Server) handleCreateWorkItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload CreateWorkItemPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", presenter.TypeValidation, http.StatusBadRequest)
		return
	}

	item, err := s.devops.CreateWorkItem(ctx, middleware.PrincipalCtx(ctx), payload.Project, payload.Type, payload.Fields)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, item, http.StatusCreated)
}

func (s *Server) handleUpdateWorkItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		presenter.Error(w, r, "work item id must be an integer", presenter.TypeValidation, http.StatusBadRequest)
		return
	}

	var payload UpdateWorkItemPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", presenter.TypeValidation, http.StatusBadRequest)
		return
	}

	item, err := s.devops.UpdateWorkItem(ctx, middleware.PrincipalCtx(ctx), id, payload.Fields)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, item, http.StatusOK)
}
