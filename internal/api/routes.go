package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/about"

	MeRoute = "/v1/auth/me"

	ProjectsRoute = "/v1/projects"
	ProjectRoute  = "/v1/projects/{id}"

	WorkItemsRoute = "/v1/workitems"
	WorkItemRoute  = "/v1/workitems/{id}"

	AuditParent     = "/v1/admin/"
	ListAuditsRoute = AuditParent + "audits"
)
