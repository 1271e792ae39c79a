package formdef

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

func validatorEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(cel.Variable("value", cel.DynType))
	})
	return celEnv, celEnvErr
}

// CompileValidator compiles a CEL expression over `value` into a validator.
// The expression must produce a bool; evaluation errors count as invalid.
func CompileValidator(expr string) (model.Validator, error) {
	env, err := validatorEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return func(value any) bool {
		result, _, err := program.Eval(map[string]any{"value": value})
		if err != nil {
			return false
		}
		ok, _ := result.Value().(bool)
		return ok
	}, nil
}
