package opts

import (
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuiltinRules(t *testing.T) {
	cases := []struct {
		name    string
		rule    Rule
		value   Value
		wantErr string
	}{
		{"int in range", IntRange(1, 10), IntValue("a", ScopeSystem, 10), ""},
		{"int below range", IntRange(1, 10), IntValue("a", ScopeSystem, 0), "out of range"},
		{"int wrong kind", IntRange(1, 10), FloatValue("a", ScopeSystem, 2), "expected int"},
		{"float in range", FloatRange(0, 1), FloatValue("a", ScopeSystem, 0.5), ""},
		{"float above range", FloatRange(0, 1), FloatValue("a", ScopeSystem, 1.5), "out of range"},
		{"float nan", FloatRange(0, 10), FloatValue("a", ScopeSystem, math.NaN()), "out of range"},
		{"float inf", FloatRange(0, 10), FloatValue("a", ScopeSystem, math.Inf(1)), "out of range"},
		{"one of ignores case", OneOf("snappy", "gzip"), StringValue("a", ScopeSystem, "GZIP"), ""},
		{"one of rejects", OneOf("snappy", "gzip"), StringValue("a", ScopeSystem, "lz4"), "not one of"},
		{"not empty", NotEmpty(), StringValue("a", ScopeSystem, "x"), ""},
		{"not empty blank", NotEmpty(), StringValue("a", ScopeSystem, "  "), "must not be empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Check(tc.value)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNilRuleFuncAccepts(t *testing.T) {
	var rule RuleFunc
	if err := rule.Check(IntValue("a", ScopeSystem, 1)); err != nil {
		t.Fatalf("nil rule func should accept, got %v", err)
	}
}

var ruleEngines = []struct {
	name string
	opts func(cache ProgramCache) []RuleOption
}{
	{"expr", func(cache ProgramCache) []RuleOption {
		return []RuleOption{RuleWithProgramCache(cache)}
	}},
	{"cel", func(cache ProgramCache) []RuleOption {
		return []RuleOption{RuleWithProgramCache(cache), RuleWithEvaluator(NewCELEvaluator())}
	}},
}

func TestExpressionRuleAcrossEngines(t *testing.T) {
	cases := []struct {
		name   string
		expr   string
		value  Value
		accept bool
	}{
		{"int bound", "value >= 0 && value <= 100", IntValue("exec.queue.small", ScopeSystem, 50), true},
		{"int outside", "value >= 0 && value <= 100", IntValue("exec.queue.small", ScopeSystem, 500), false},
		{"string compare", `value != "none"`, StringValue("store.parquet.compression", ScopeSystem, "none"), false},
		{"bool", "value == true", BoolValue("exec.queue.enable", ScopeSystem, true), true},
		{"name binding", `name == "exec.queue.enable"`, BoolValue("EXEC.QUEUE.ENABLE", ScopeSystem, false), true},
		{"kind binding", `kind == "float" && value > 0.0`, FloatValue("planner.affinity_factor", ScopeSystem, 1.2), true},
		{"scope binding", `scope == "SESSION"`, IntValue("planner.slice_target", ScopeSystem, 1), false},
	}
	for _, engine := range ruleEngines {
		t.Run(engine.name, func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					rule := Expression(tc.expr, engine.opts(NewProgramCache())...)
					err := rule.Check(tc.value)
					if tc.accept && err != nil {
						t.Fatalf("expected %s to accept %s: %v", tc.expr, tc.value, err)
					}
					if !tc.accept && err == nil {
						t.Fatalf("expected %s to reject %s", tc.expr, tc.value)
					}
				})
			}
		})
	}
}

func TestExpressionRuleReusesPrograms(t *testing.T) {
	cache := NewProgramCache()
	rule := Expression("value > 0", RuleWithProgramCache(cache))
	for i := int64(1); i <= 3; i++ {
		if err := rule.Check(IntValue("planner.slice_target", ScopeSystem, i)); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
}

func TestExpressionRuleMessages(t *testing.T) {
	err := Expression("value > 0").Check(IntValue("planner.slice_target", ScopeSystem, 0))
	if err == nil || !strings.Contains(err.Error(), `does not satisfy "value > 0"`) {
		t.Fatalf("expected default rejection message, got %v", err)
	}

	err = Expression("value > 0", RuleWithMessage("must be positive")).
		Check(IntValue("planner.slice_target", ScopeSystem, 0))
	if err == nil || err.Error() != "must be positive" {
		t.Fatalf("expected custom message, got %v", err)
	}
}

func TestExpressionRuleNonBoolResult(t *testing.T) {
	err := Expression("value + 1").Check(IntValue("planner.slice_target", ScopeSystem, 1))
	if err == nil || !strings.Contains(err.Error(), "want bool") {
		t.Fatalf("expected non-bool error, got %v", err)
	}
}

func TestExpressionRuleCompileFailure(t *testing.T) {
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) { events = append(events, event) })

	err := Expression("value >", RuleWithLogger(logger)).Check(IntValue("planner.slice_target", ScopeSystem, 1))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T (%v)", err, err)
	}
	if evalErr.Option != "planner.slice_target" {
		t.Fatalf("expected option label, got %q", evalErr.Option)
	}
	if evalErr.Phase != PhaseCompile {
		t.Fatalf("expected compile phase, got %q", evalErr.Phase)
	}
	if len(events) != 1 || events[0].Err == nil || events[0].Engine != "expr" {
		t.Fatalf("expected one failed expr evaluation logged, got %+v", events)
	}
}

func TestExpressionRuleCustomFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("pow2", func(args ...any) (any, error) {
		n, _ := args[0].(int64)
		return n > 0 && n&(n-1) == 0, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	rule := Expression("pow2(value)", RuleWithFunctionRegistry(registry))
	if err := rule.Check(IntValue("store.parquet.block-size", ScopeSystem, 1024)); err != nil {
		t.Fatalf("expected 1024 to pass: %v", err)
	}
	if err := rule.Check(IntValue("store.parquet.block-size", ScopeSystem, 1000)); err == nil {
		t.Fatalf("expected 1000 to fail")
	}
}

func TestExpressionRuleZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rule := Expression("value > 0", RuleWithLogger(NewZapEvaluatorLogger(zap.New(core))))

	if err := rule.Check(IntValue("planner.slice_target", ScopeSystem, 1)); err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := logs.FilterMessage("option rule evaluated").Len(); got != 1 {
		t.Fatalf("expected one debug entry, got %d", got)
	}
	entry := logs.All()[0]
	if entry.ContextMap()["option"] != "planner.slice_target" || entry.ContextMap()["engine"] != "expr" {
		t.Fatalf("unexpected fields %v", entry.ContextMap())
	}
}

func TestRuleWithoutEvaluator(t *testing.T) {
	err := Expression("value > 0", RuleWithEvaluator(nil)).Check(IntValue("a", ScopeSystem, 1))
	if !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestExpressionRuleSharedCacheAcrossEngines(t *testing.T) {
	cache := NewProgramCache()
	byExpr := Expression("value > 0", RuleWithProgramCache(cache))
	byCEL := Expression("value > 0", RuleWithProgramCache(cache), RuleWithEvaluator(NewCELEvaluator()))

	for _, rule := range []Rule{byExpr, byCEL, byExpr, byCEL} {
		if err := rule.Check(IntValue("planner.slice_target", ScopeSystem, 5)); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected one program per engine, got %d", cache.Len())
	}
}

func TestExpressionRuleLogsCompilation(t *testing.T) {
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) { events = append(events, event) })
	rule := Expression("value > 0", RuleWithLogger(logger))

	for i := 0; i < 2; i++ {
		if err := rule.Check(IntValue("planner.slice_target", ScopeSystem, 1)); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	if len(events) != 2 || !events[0].Compiled || events[1].Compiled {
		t.Fatalf("expected compile then cache hit, got %+v", events)
	}
}

func TestCELRuleCustomFunctions(t *testing.T) {
	cel := NewCELEvaluator(EvaluatorWithFunctions(DefaultFunctions()))
	rule := Expression("pow2(value)", RuleWithEvaluator(cel))
	if err := rule.Check(IntValue("store.parquet.block-size", ScopeSystem, 1<<20)); err != nil {
		t.Fatalf("expected power of two to pass: %v", err)
	}
	if err := rule.Check(IntValue("store.parquet.block-size", ScopeSystem, 3)); err == nil {
		t.Fatalf("expected 3 to fail")
	}
}

func TestExpressionRuleRuntimeFailure(t *testing.T) {
	functions := NewFunctionRegistry().MustRegister("explode", func(...any) (any, error) {
		return nil, errors.New("boom")
	})
	err := Expression("explode(value)", RuleWithFunctionRegistry(functions)).
		Check(IntValue("planner.slice_target", ScopeSystem, 1))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Phase != PhaseRun {
		t.Fatalf("expected run phase evaluation error, got %v", err)
	}
}

func TestFunctionRegistryNames(t *testing.T) {
	registry := NewFunctionRegistry()
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"pow2", false},
		{"pow2", true},
		{"Pow2", false},
		{"value", true},
		{"scope", true},
		{"has-dash", true},
		{"", true},
	}
	for _, tc := range cases {
		err := registry.Register(tc.name, PowerOfTwo)
		if tc.wantErr != (err != nil) {
			t.Fatalf("register %q: wantErr=%v got %v", tc.name, tc.wantErr, err)
		}
	}
	if got := registry.Names(); len(got) != 2 || got[0] != "Pow2" || got[1] != "pow2" {
		t.Fatalf("unexpected names %v", got)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected error for missing function")
	}
}

func TestPowerOfTwo(t *testing.T) {
	cases := []struct {
		arg  any
		want bool
	}{
		{int64(1), true},
		{int64(1024), true},
		{int64(0), false},
		{int64(-8), false},
		{int64(12), false},
		{2048, true},
		{float64(64), true},
		{float64(2.5), false},
	}
	for _, tc := range cases {
		got, err := PowerOfTwo(tc.arg)
		if err != nil {
			t.Fatalf("pow2(%v): %v", tc.arg, err)
		}
		if got != tc.want {
			t.Fatalf("pow2(%v) = %v, want %v", tc.arg, got, tc.want)
		}
	}
	if _, err := PowerOfTwo("x"); err == nil {
		t.Fatalf("expected error for string argument")
	}
}
