package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/middleware"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/devops"
)

type ProjectListResponse struct {
	Projects []devops.Project `json:"projects"`
	Count    int              `json:"count"`
}

type CreateProjectPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects, err := s.devops.ListProjects(ctx, middleware.PrincipalCtx(ctx))
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, ProjectListResponse{Projects: projects, Count: len(projects)}, http.StatusOK)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, err := s.devops.GetProject(ctx, middleware.PrincipalCtx(ctx), r.PathValue("id"))
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, project, http.StatusOK)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload CreateProjectPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", presenter.TypeValidation, http.StatusBadRequest)
		return
	}

	ref, err := s.devops.CreateProject(ctx, middleware.PrincipalCtx(ctx), devops.CreateProjectRequest{
		Name:        payload.Name,
		Description: payload.Description,
		Visibility:  payload.Visibility,
	})
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	log.Ctx(ctx).Info().Str("project", payload.Name).Msg("project creation queued")
	presenter.JSON(w, r, ref, http.StatusAccepted)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ref, err := s.devops.DeleteProject(ctx, middleware.PrincipalCtx(ctx), r.PathValue("id"))
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	log.Ctx(ctx).Info().Str("project", r.PathValue("id")).Msg("project deletion queued")
	presenter.JSON(w, r, ref, http.StatusAccepted)
}
