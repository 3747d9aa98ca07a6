package policy

import (
	"fmt"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

var ErrNoRuleMatch = fmt.Errorf("no matching rule found for this principal and operation")

// Decision is the outcome of evaluating the fallback rules for one operation.
type Decision struct {
	// RuleName is the rule that decided, or "default" when no rules are configured.
	RuleName string

	// AllowFallback permits serving with the service identity.
	AllowFallback bool
}

// Engine holds the loaded rules and evaluates them in order.
type Engine struct {
	rules []Rule
}

func New(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Evaluate returns the decision of the first matching rule. With no rules
// configured at all, fallback is allowed; this keeps single-user development
// setups working with just a PAT. With rules configured but none matching,
// ErrNoRuleMatch is returned and callers must treat fallback as denied.
func (e *Engine) Evaluate(principal *core.Principal, operation string) (*Decision, error) {
	if len(e.rules) == 0 {
		return &Decision{RuleName: "default", AllowFallback: true}, nil
	}
	for _, rule := range e.rules {
		if matches(rule, principal, operation) {
			return &Decision{RuleName: rule.Name, AllowFallback: rule.AllowFallback}, nil
		}
	}
	return nil, ErrNoRuleMatch
}

func matches(rule Rule, principal *core.Principal, operation string) bool {
	if len(rule.Match.Operations) > 0 && !slices.Contains(rule.Match.Operations, operation) {
		return false
	}
	if rule.Match.CompiledExpr != nil {
		var claims map[string]any
		if principal != nil {
			claims = principal.Claims
		}
		out, err := expr.Run(rule.Match.CompiledExpr, map[string]any{
			"principal": principal,
			"claims":    claims,
			"operation": operation,
		})
		if err != nil {
			log.Warn().Err(err).Msgf("error evaluating expression for rule '%s'", rule.Name)
			return false
		}
		b, ok := out.(bool)
		if !ok || !b {
			return false
		}
	}
	return true
}

// CompileRules validates the rule set and pre-compiles expressions.
func CompileRules(rules []Rule) ([]Rule, error) {
	seenNames := make(map[string]struct{})
	var validRules []Rule

	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule #%d missing name", i)
		}
		if _, exists := seenNames[rule.Name]; exists {
			return nil, fmt.Errorf("rule name '%s' is not unique", rule.Name)
		}
		seenNames[rule.Name] = struct{}{}

		if rule.Match.Expr != "" {
			out, err := expr.Compile(rule.Match.Expr, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compiling expr for rule '%s': %w", rule.Name, err)
			}
			rule.Match.CompiledExpr = out
		}

		validRules = append(validRules, rule)
	}
	return validRules, nil
}
