package core

import "time"

// Audit actions recorded by the service.
const (
	AuditActionTokenExchange = "token.exchange"
	AuditActionStepUpRaised  = "auth.stepup"
	AuditActionPATFallback   = "auth.fallback"
	AuditActionVerifyFailed  = "auth.verify_failed"
)

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "token.exchange", "auth.stepup")
	Action string `json:"action"`

	// SubjectID identifies who made the request, if known
	SubjectID string `json:"subject_id,omitempty"`

	// Operation is the API operation being served (e.g. "projects.create")
	Operation string `json:"operation,omitempty"`

	// Scopes requested from the identity provider, if any
	Scopes []string `json:"scopes,omitempty"`

	// PolicyName is the delegation rule that applied, if any
	PolicyName string `json:"policy_name,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
