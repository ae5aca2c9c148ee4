package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Variables visible to rule conditions.
const (
	VarEvent  = "event"
	VarSource = "source"
	VarKeys   = "keys"
	VarOld    = "old"
	VarNew    = "new"
)

// Activation is the per-record input to a compiled condition. Images are the
// decoded attribute maps; a missing image is an empty map.
type Activation struct {
	Event  string
	Source string
	Keys   map[string]interface{}
	Old    map[string]interface{}
	New    map[string]interface{}
}

func (a Activation) vars() map[string]interface{} {
	return map[string]interface{}{
		VarEvent:  a.Event,
		VarSource: a.Source,
		VarKeys:   orEmpty(a.Keys),
		VarOld:    orEmpty(a.Old),
		VarNew:    orEmpty(a.New),
	}
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarEvent, cel.StringType),
		cel.Variable(VarSource, cel.StringType),
		cel.Variable(VarKeys, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(VarOld, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(VarNew, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateCondition(expression string) error {
	_, err := e.CompileCondition(expression)
	return err
}

// Condition is a compiled boolean expression, safe for concurrent use.
type Condition struct {
	expression string
	program    cel.Program
}

func (c *Condition) String() string {
	return c.expression
}

// CompileCondition compiles expression once; it must type-check to bool.
func (e *Evaluator) CompileCondition(expression string) (*Condition, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Condition{expression: expression, program: program}, nil
}

func (c *Condition) Eval(ctx context.Context, act Activation) (bool, error) {
	result, _, err := c.program.ContextEval(ctx, act.vars())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
