//go:build js_eval

package opts

import "testing"

func TestExpressionRuleWithJS(t *testing.T) {
	js := NewJSEvaluator(EvaluatorWithFunctions(DefaultFunctions()))
	cache := NewProgramCache()

	even := Expression("value % 2 === 0", RuleWithProgramCache(cache), RuleWithEvaluator(js))
	if err := even.Check(IntValue("exec.queue.small", ScopeSystem, 4)); err != nil {
		t.Fatalf("expected even value to pass: %v", err)
	}
	if err := even.Check(IntValue("exec.queue.small", ScopeSystem, 3)); err == nil {
		t.Fatalf("expected odd value to fail")
	}

	sized := Expression("pow2(value) && name.startsWith('store.')", RuleWithProgramCache(cache), RuleWithEvaluator(js))
	if err := sized.Check(IntValue("store.parquet.block-size", ScopeSystem, 1<<20)); err != nil {
		t.Fatalf("expected block size to pass: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected two cached programs, got %d", cache.Len())
	}
}
