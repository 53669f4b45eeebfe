//go:build js_eval

package opts

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	functions *FunctionRegistry
}

// NewJSEvaluator returns a goja engine. Expressions are JavaScript
// expressions, not statements.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := newEvaluatorConfig(opts)
	return &jsEvaluator{functions: cfg.functions}
}

func (e *jsEvaluator) Engine() string { return "js" }

func (e *jsEvaluator) Compile(expression string) (Program, error) {
	program, err := goja.Compile("rule", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	if err != nil {
		return nil, err
	}
	return &jsProgram{program: program, functions: e.functions}, nil
}

// jsProgram runs in a fresh runtime per call since goja runtimes are not safe
// for concurrent use.
type jsProgram struct {
	program   *goja.Program
	functions *FunctionRegistry
}

func (p *jsProgram) Run(in RuleInput) (any, error) {
	vm := goja.New()
	for key, value := range in.Bindings() {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	for _, name := range p.functions.Names() {
		if err := vm.Set(name, p.functions.Bind(name)); err != nil {
			return nil, err
		}
	}
	out, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return out.Export(), nil
}
