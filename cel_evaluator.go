package opts

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// maxCELArity bounds the overloads declared for each registered function.
const maxCELArity = 3

type celEvaluator struct {
	functions *FunctionRegistry

	once   sync.Once
	env    *celgo.Env
	envErr error
}

// NewCELEvaluator returns a cel-go engine. Expressions are type checked
// against the rule bindings, with value declared as dyn.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := newEvaluatorConfig(opts)
	return &celEvaluator{functions: cfg.functions}
}

func (e *celEvaluator) Engine() string { return "cel" }

func (e *celEvaluator) Compile(expression string) (Program, error) {
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return celProgram{program: program}, nil
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.once.Do(func() {
		options := []celgo.EnvOption{
			celgo.Variable("value", celgo.DynType),
			celgo.Variable("name", celgo.StringType),
			celgo.Variable("kind", celgo.StringType),
			celgo.Variable("scope", celgo.StringType),
			celgo.Variable("now", celgo.TimestampType),
		}
		for _, name := range e.functions.Names() {
			options = append(options, e.declareFunction(name))
		}
		e.env, e.envErr = celgo.NewEnv(options...)
	})
	return e.env, e.envErr
}

// declareFunction exposes a registry function with one to maxCELArity dyn
// arguments.
func (e *celEvaluator) declareFunction(name string) celgo.EnvOption {
	call := func(values ...ref.Val) ref.Val {
		args := make([]any, len(values))
		for i, value := range values {
			args[i] = value.Value()
		}
		result, err := e.functions.Call(name, args...)
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
	overloads := make([]celgo.FunctionOpt, 0, maxCELArity)
	for arity := 1; arity <= maxCELArity; arity++ {
		params := make([]*celgo.Type, arity)
		for i := range params {
			params[i] = celgo.DynType
		}
		var binding celgo.OverloadOpt
		switch arity {
		case 1:
			binding = celgo.UnaryBinding(func(arg ref.Val) ref.Val { return call(arg) })
		case 2:
			binding = celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val { return call(lhs, rhs) })
		default:
			binding = celgo.FunctionBinding(call)
		}
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("%s_dyn%d", name, arity), params, celgo.DynType, binding))
	}
	return celgo.Function(name, overloads...)
}

type celProgram struct {
	program celgo.Program
}

func (p celProgram) Run(in RuleInput) (any, error) {
	out, _, err := p.program.Eval(in.Bindings())
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
