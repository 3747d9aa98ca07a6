package api

import (
	"net/http"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/middleware"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/audit"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/auth"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/service"
)

type Server struct {
	verifier core.Verifier
	minter   auth.CredentialMinter
	devops   *service.DevOpsService
	auditor  core.Auditor
}

func NewServer(
	verifier core.Verifier,
	minter auth.CredentialMinter,
	devopsService *service.DevOpsService,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Server{
		verifier: verifier,
		minter:   minter,
		devops:   devopsService,
		auditor:  auditor,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// authenticated routes
	authedMux := http.NewServeMux()
	authedMux.HandleFunc("GET "+MeRoute, s.handleMe)

	authedMux.HandleFunc("GET "+ProjectsRoute, s.handleListProjects)
	authedMux.HandleFunc("POST "+ProjectsRoute, s.handleCreateProject)
	authedMux.HandleFunc("GET "+ProjectRoute, s.handleGetProject)
	authedMux.HandleFunc("DELETE "+ProjectRoute, s.handleDeleteProject)

	authedMux.HandleFunc("GET "+WorkItemsRoute, s.handleListWorkItems)
	authedMux.HandleFunc("POST "+WorkItemsRoute, s.handleCreateWorkItem)
	authedMux.HandleFunc("GET "+WorkItemRoute, s.handleGetWorkItem)
	authedMux.HandleFunc("PATCH "+WorkItemRoute, s.handleUpdateWorkItem)

	authedMux.HandleFunc("GET "+ListAuditsRoute, s.handleListAudits)

	mux.Handle("/v1/", middleware.Authenticate(s.verifier, s.minter, s.auditor)(authedMux))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				middleware.SecurityHeadersMiddleware(
					mux))))
}
