package opts

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	functions *FunctionRegistry
}

// NewExprEvaluator returns the expr-lang engine. It is the engine expression
// rules use when none is given.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := newEvaluatorConfig(opts)
	return &exprEvaluator{functions: cfg.functions}
}

func (e *exprEvaluator) Engine() string { return "expr" }

func (e *exprEvaluator) Compile(expression string) (Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.functions.Names() {
		options = append(options, exprlang.Function(name, e.functions.Bind(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	return exprProgram{program: program}, nil
}

type exprProgram struct {
	program *exprvm.Program
}

func (p exprProgram) Run(in RuleInput) (any, error) {
	return exprlang.Run(p.program, in.Bindings())
}
