package opts

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Rule checks a candidate value for one option.
type Rule interface {
	Check(v Value) error
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(Value) error

// Check implements Rule.
func (f RuleFunc) Check(v Value) error {
	if f == nil {
		return nil
	}
	return f(v)
}

// IntRange accepts int values within [min, max].
func IntRange(min, max int64) Rule {
	return RuleFunc(func(v Value) error {
		if v.Kind() != KindInt {
			return fmt.Errorf("expected int, got %s", v.Kind())
		}
		if n := v.AsInt(); n < min || n > max {
			return fmt.Errorf("value %d out of range [%d, %d]", n, min, max)
		}
		return nil
	})
}

// FloatRange accepts float values within [min, max]. NaN is rejected.
func FloatRange(min, max float64) Rule {
	return RuleFunc(func(v Value) error {
		if v.Kind() != KindFloat {
			return fmt.Errorf("expected float, got %s", v.Kind())
		}
		if f := v.AsFloat(); math.IsNaN(f) || f < min || f > max {
			return fmt.Errorf("value %g out of range [%g, %g]", f, min, max)
		}
		return nil
	})
}

// OneOf accepts string values matching one of allowed, ignoring case.
func OneOf(allowed ...string) Rule {
	choices := append([]string(nil), allowed...)
	return RuleFunc(func(v Value) error {
		if v.Kind() != KindString {
			return fmt.Errorf("expected string, got %s", v.Kind())
		}
		candidate := v.AsString()
		for _, choice := range choices {
			if strings.EqualFold(candidate, choice) {
				return nil
			}
		}
		return fmt.Errorf("value %q is not one of [%s]", candidate, strings.Join(choices, ", "))
	})
}

// NotEmpty rejects blank strings.
func NotEmpty() Rule {
	return RuleFunc(func(v Value) error {
		if v.Kind() != KindString {
			return fmt.Errorf("expected string, got %s", v.Kind())
		}
		if strings.TrimSpace(v.AsString()) == "" {
			return errors.New("value must not be empty")
		}
		return nil
	})
}

// RuleOption configures an expression rule.
type RuleOption func(*expressionRule)

// RuleWithEvaluator selects the engine used by an expression rule. The
// default is expr-lang.
func RuleWithEvaluator(evaluator Evaluator) RuleOption {
	return func(r *expressionRule) {
		r.evaluator = evaluator
		r.custom = true
	}
}

// RuleWithProgramCache shares compiled programs between expression rules.
// Entries are keyed by engine, so one cache can serve every engine. Rules
// sharing a cache must also share their function registry.
func RuleWithProgramCache(cache ProgramCache) RuleOption {
	return func(r *expressionRule) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// RuleWithFunctionRegistry exposes registry functions to the default
// evaluator. Custom evaluators take theirs through EvaluatorWithFunctions.
func RuleWithFunctionRegistry(registry *FunctionRegistry) RuleOption {
	return func(r *expressionRule) {
		if registry != nil {
			r.functions = registry
		}
	}
}

// RuleWithLogger records each evaluation.
func RuleWithLogger(logger EvaluatorLogger) RuleOption {
	return func(r *expressionRule) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RuleWithMessage replaces the rejection message.
func RuleWithMessage(message string) RuleOption {
	return func(r *expressionRule) {
		r.message = message
	}
}

type expressionRule struct {
	expr      string
	evaluator Evaluator
	custom    bool
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
	message   string
}

// Expression accepts a value when expr evaluates to true. The expression sees
// the bindings of RuleInput: value, name, kind, scope and now.
func Expression(expr string, opts ...RuleOption) Rule {
	rule := &expressionRule{
		expr:   expr,
		logger: noopEvaluatorLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rule)
		}
	}
	if rule.cache == nil {
		rule.cache = NewProgramCache()
	}
	if !rule.custom {
		rule.evaluator = NewExprEvaluator(EvaluatorWithFunctions(rule.functions))
	}
	return rule
}

func (r *expressionRule) Check(v Value) error {
	out, err := evaluate(r.evaluator, r.cache, r.logger, ruleInputFor(v), r.expr)
	if err != nil {
		return err
	}
	accepted, ok := out.(bool)
	if !ok {
		return fmt.Errorf("rule %q returned %T, want bool", r.expr, out)
	}
	if accepted {
		return nil
	}
	if r.message != "" {
		return errors.New(r.message)
	}
	return fmt.Errorf("value %s does not satisfy %q", formatPayload(v.Payload()), r.expr)
}
