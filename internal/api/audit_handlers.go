package api

import (
	"net/http"
	"strconv"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/service"
)

// recentLister is implemented by auditors that can list recent entries
// (currently only the in-memory auditor).
type recentLister interface {
	GetRecent(limit int) ([]core.AuditEntry, error)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			presenter.Error(w, r, "limit must be a positive integer", presenter.TypeValidation, http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	lister, ok := s.auditor.(recentLister)
	if !ok {
		presenter.Err(w, r, service.ErrNotImplemented)
		return
	}

	entries, err := lister.GetRecent(limit)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
