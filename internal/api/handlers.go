package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/middleware"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/api/presenter"
	"github.com/christopherhouse/azure-devops-ai-agent/internal/buildinfo"
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

// handleMe returns the authenticated caller's identity.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalCtx(r.Context())
	if principal == nil {
		presenter.Error(w, r, "not authenticated", presenter.TypeAuthentication, http.StatusUnauthorized)
		return
	}
	presenter.JSON(w, r, principal, http.StatusOK)
}

func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if !errors.Is(err, io.EOF) || !allowEmpty {
				return err
			}
		}
		// ensure there's no extra data
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}
