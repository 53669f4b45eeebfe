//go:build !js_eval

package opts

import "errors"

// ErrJSUnavailable is returned by rules using the JS engine in binaries built
// without the js_eval tag.
var ErrJSUnavailable = errors.New("opts: js evaluator requires the js_eval build tag")

type jsEvaluator struct{}

// NewJSEvaluator returns an engine whose every compile fails with
// ErrJSUnavailable. Build with -tags js_eval for the goja engine.
func NewJSEvaluator(...EvaluatorOption) Evaluator { return jsEvaluator{} }

func (jsEvaluator) Engine() string { return "js" }

func (jsEvaluator) Compile(string) (Program, error) { return nil, ErrJSUnavailable }
