// Package guard contains a graphkv.Store decorator enforcing a CEL write policy.
package guard

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Evaluator holds a compiled CEL predicate over a storage key and its value.
type Evaluator struct {
	Expression string
	program    cel.Program
}

// NewEvaluator compiles expression. It can refer to `key` (string) and `value` (any JSON value)
// and must evaluate to a bool, e.g. `!key.startsWith("admin!") && value != null`.
func NewEvaluator(expression string) (*Evaluator, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression can't be empty string")
	}

	env, err := cel.NewEnv(
		cel.Variable("key", cel.StringType),
		cel.Variable("value", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error compiling CEL expression: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must evaluate to bool, got %v", t)
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("error creating Program: %w", err)
	}
	return &Evaluator{
		Expression: expression,
		program:    p,
	}, nil
}

// Evaluate runs the predicate against a key and its value.
func (e *Evaluator) Evaluate(key string, value any) (bool, error) {
	out, _, err := e.program.Eval(map[string]any{
		"key":   key,
		"value": value,
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating CEL expression: %w", err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("error converting to bool, got: %v", out.Value())
	}
	return v, nil
}
