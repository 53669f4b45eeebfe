package opts

import (
	"errors"
	"fmt"
)

// EvaluationPhase tells whether an expression failed to build or to run.
type EvaluationPhase string

const (
	PhaseCompile EvaluationPhase = "compile"
	PhaseRun     EvaluationPhase = "run"
)

// EvaluationError reports an expression rule that could not produce a
// verdict, as opposed to one that rejected the value.
type EvaluationError struct {
	Phase  EvaluationPhase
	Engine string
	Expr   string
	Option string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("%q", e.Expr)
	}
	return fmt.Sprintf("opts: %s %s of %s for %s: %v", e.Engine, e.Phase, expr, e.Option, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// newEvaluationError wraps err unless an evaluator already reported one, in
// which case the missing fields are filled in and the original is kept.
func newEvaluationError(phase EvaluationPhase, engine, expr, option string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if errors.As(err, &existing) {
		if existing.Phase == "" {
			existing.Phase = phase
		}
		if existing.Engine == "" {
			existing.Engine = engine
		}
		if existing.Expr == "" {
			existing.Expr = expr
		}
		if existing.Option == "" {
			existing.Option = option
		}
		return existing
	}
	return &EvaluationError{
		Phase:  phase,
		Engine: engine,
		Expr:   expr,
		Option: option,
		Err:    err,
	}
}
