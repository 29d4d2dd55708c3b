// Package cel compiles the user-defined validation rules from the app config
// and evaluates them against the session values and disk signals.
package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"
)

// Rule is one user rule. When is a CEL boolean expression over
// vals (map<string,string>) and disk (map<string,bool>).
type Rule struct {
	Param    string `yaml:"param" validate:"required,startswith=GRUB_"`
	Severity int    `yaml:"severity" validate:"min=1,max=4"`
	Message  string `yaml:"message" validate:"required"`
	When     string `yaml:"when" validate:"required"`
}

// Hit is a rule whose condition held.
type Hit struct {
	Param    string
	Severity int
	Message  string
}

type compiled struct {
	rule Rule
	prg  cel.Program
}

// Evaluator holds compiled rules.
type Evaluator struct {
	env   *cel.Env
	rules []compiled
}

// newRuleEnv creates the environment rules compile against, with the string
// extensions for contains/split style helpers.
func newRuleEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 4+len(opts))
	allOpts = append(allOpts,
		cel.Variable("vals", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("disk", cel.MapType(cel.StringType, cel.BoolType)),
		celext.Strings(),
		celext.Lists(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// NewEvaluator compiles rules. The first compile error is returned with the
// rule's parameter so the config author can find it.
func NewEvaluator(rules []Rule) (*Evaluator, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	e := &Evaluator{env: env}
	for i, r := range rules {
		ast, issues := env.Compile(r.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %d (%s): compilation error: %w", i, r.Param, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %d (%s): expression must be bool, got %s", i, r.Param, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): program error: %w", i, r.Param, err)
		}
		e.rules = append(e.rules, compiled{rule: r, prg: prg})
	}
	return e, nil
}

// Len is the number of compiled rules.
func (e *Evaluator) Len() int { return len(e.rules) }

// Evaluate runs every rule in order. Rules that fail at runtime (for
// example a missing map key) are reported in errs and otherwise skipped.
func (e *Evaluator) Evaluate(vals map[string]string, disk map[string]bool) (hits []Hit, errs []error) {
	act := map[string]any{"vals": vals, "disk": disk}
	for _, c := range e.rules {
		out, _, err := c.prg.Eval(act)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s %q: eval error: %w", c.rule.Param, c.rule.When, err))
			continue
		}
		if truthy(out) {
			hits = append(hits, Hit{Param: c.rule.Param, Severity: c.rule.Severity, Message: c.rule.Message})
		}
	}
	return hits, errs
}

func truthy(v ref.Val) bool {
	b, ok := v.(types.Bool)
	return ok && bool(b)
}
