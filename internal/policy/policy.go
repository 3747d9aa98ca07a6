package policy

import (
	"github.com/expr-lang/expr/vm"
)

// Rule decides how an API operation may obtain a downstream credential when
// the caller's delegated identity is unavailable.
type Rule struct {
	// Name is a human-readable identifier for logs/debugging.
	Name string `yaml:"name" json:"name"`

	// Description explains the intent of the rule.
	Description string `yaml:"description" json:"description"`

	// Match defines criteria for the operation and the caller.
	Match Match `yaml:"match" json:"match"`

	// AllowFallback permits serving the operation with the service identity
	// (PAT) when no delegated credential is available.
	AllowFallback bool `yaml:"allow_fallback" json:"allow_fallback"`
}

// Match defines the conditions required for a Rule to apply.
type Match struct {
	// Operations lists the API operations this rule covers
	// (e.g. "projects.create"). Empty matches every operation.
	Operations []string `yaml:"operations" json:"operations"`

	// Expr is an optional expression over the caller's claims for more
	// complex matching logic. Leaving this empty means no claim-based
	// restriction.
	Expr string `yaml:"expr" json:"expr"`

	// CompiledExpr holds the pre-compiled form of Expr for efficient evaluation.
	CompiledExpr *vm.Program `yaml:"-" json:"-"`
}
