package opts

import (
	"errors"
	"time"
)

var ErrNoEvaluator = errors.New("opts: evaluator not configured")

// RuleInput is what an expression rule sees when it checks a candidate.
// Expressions reach the fields as value, name, kind, scope and now.
type RuleInput struct {
	Name  Name
	Kind  Kind
	Scope Scope
	Value any
	Now   time.Time
}

func ruleInputFor(v Value) RuleInput {
	return RuleInput{
		Name:  v.Name(),
		Kind:  v.Kind(),
		Scope: v.Scope(),
		Value: v.Raw(),
	}
}

// Bindings returns the variables exposed to an expression.
func (in RuleInput) Bindings() map[string]any {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return map[string]any{
		"value": in.Value,
		"name":  string(in.Name),
		"kind":  in.Kind.String(),
		"scope": in.Scope.String(),
		"now":   now,
	}
}

func (in RuleInput) label() string {
	if in.Name == "" {
		return "unknown"
	}
	return string(in.Name)
}

// bindingNames are reserved and cannot be used for registered functions.
var bindingNames = map[string]struct{}{
	"value": {}, "name": {}, "kind": {}, "scope": {}, "now": {},
}

// Evaluator compiles rule expressions for one engine.
type Evaluator interface {
	// Engine names the engine in logs, errors and program cache keys.
	Engine() string
	Compile(expr string) (Program, error)
}

// Program is a compiled expression, safe for concurrent Run calls.
type Program interface {
	Run(in RuleInput) (any, error)
}

// EvaluatorOption configures the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	functions *FunctionRegistry
}

// EvaluatorWithFunctions exposes a snapshot of registry to expressions. Each
// function is callable by its registered name.
func EvaluatorWithFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

func newEvaluatorConfig(opts []EvaluatorOption) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// programKey keeps programs from different engines apart in a shared cache.
func programKey(engine, expr string) string {
	return engine + "\x00" + expr
}

// evaluate compiles expr through cache, runs it against in and reports the
// attempt to logger.
func evaluate(evaluator Evaluator, cache ProgramCache, logger EvaluatorLogger, in RuleInput, expr string) (any, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	engine := evaluator.Engine()
	event := EvaluatorLogEvent{Engine: engine, Expr: expr, Option: in.label()}
	start := time.Now()

	program, compiled, err := loadProgram(evaluator, cache, expr)
	event.Compiled = compiled
	var out any
	if err != nil {
		err = newEvaluationError(PhaseCompile, engine, expr, in.label(), err)
	} else if out, err = program.Run(in); err != nil {
		err = newEvaluationError(PhaseRun, engine, expr, in.label(), err)
	}

	event.Duration = time.Since(start)
	event.Err = err
	logger.LogEvaluation(event)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadProgram(evaluator Evaluator, cache ProgramCache, expr string) (Program, bool, error) {
	if expr == "" {
		return nil, false, errors.New("expression must not be empty")
	}
	key := programKey(evaluator.Engine(), expr)
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(Program); ok {
				return program, false, nil
			}
		}
	}
	program, err := evaluator.Compile(expr)
	if err != nil {
		return nil, true, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, true, nil
}
