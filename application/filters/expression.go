package filters

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Expression is a compiled CEL filter over a node's attributes.
// The node is bound as `node` (attribute map) and `key` (node key).
type Expression struct {
	source  string
	program cel.Program
}

var expressionEnv = mustExpressionEnv()

func mustExpressionEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("node", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("key", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("filters: building CEL environment: %v", err))
	}
	return env
}

// CompileExpression parses and type-checks a boolean CEL expression
func CompileExpression(source string) (*Expression, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, pkgerrors.NewValidationError("filter expression is empty")
	}

	ast, issues := expressionEnv.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, pkgerrors.NewValidationError("invalid filter expression").
			WithCode("INVALID_EXPRESSION").
			WithDetail("reason", issues.Err().Error())
	}
	switch ast.OutputType().String() {
	case "bool", "dyn":
	default:
		return nil, pkgerrors.NewValidationError("filter expression must evaluate to a boolean").
			WithCode("INVALID_EXPRESSION").
			WithDetail("type", ast.OutputType().String())
	}

	program, err := expressionEnv.Program(ast)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid filter expression").
			WithCode("INVALID_EXPRESSION").
			WithCause(err)
	}
	return &Expression{source: source, program: program}, nil
}

// Source returns the expression text
func (e *Expression) Source() string { return e.source }

// Matches evaluates the expression against a node
func (e *Expression) Matches(node Subject) (bool, error) {
	out, _, err := e.program.Eval(map[string]interface{}{
		"node": node.Flatten().ToMap(),
		"key":  node.Key(),
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, not bool", out.Value())
	}
	return b, nil
}

// Predicate adapts the expression; evaluation errors keep the node visible
func (e *Expression) Predicate() Predicate {
	return func(node Subject) bool {
		ok, err := e.Matches(node)
		if err != nil {
			return true
		}
		return ok
	}
}
