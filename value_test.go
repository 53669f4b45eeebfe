package opts

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewValueNormalizesName(t *testing.T) {
	v := IntValue("Planner.Slice_Target", ScopeSystem, 20)
	if v.Name() != "planner.slice_target" {
		t.Fatalf("expected canonical name, got %q", v.Name())
	}
	if v.Kind() != KindInt {
		t.Fatalf("expected int kind, got %s", v.Kind())
	}
	if v.AsInt() != 20 {
		t.Fatalf("expected 20, got %d", v.AsInt())
	}
}

func TestValueEqualIgnoresScope(t *testing.T) {
	system := BoolValue("exec.queue.enable", ScopeSystem, true)
	session := BoolValue("EXEC.QUEUE.ENABLE", ScopeSession, true)
	if !system.Equal(session) {
		t.Fatalf("expected values differing only in scope and case to be equal")
	}
	if system.Equal(BoolValue("exec.queue.enable", ScopeSystem, false)) {
		t.Fatalf("different payloads must not compare equal")
	}
	if IntValue("a", ScopeSystem, 1).Equal(FloatValue("a", ScopeSystem, 1)) {
		t.Fatalf("different kinds must not compare equal")
	}
}

func TestAccessorKindMismatchPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic reading an int option as string")
		}
		if !strings.Contains(r.(string), "planner.slice_target") {
			t.Fatalf("panic should name the option, got %v", r)
		}
	}()
	_ = IntValue("planner.slice_target", ScopeSystem, 1).AsString()
}

func TestZeroValue(t *testing.T) {
	var v Value
	if !v.IsZero() || v.Kind() != KindUnknown || v.Raw() != nil {
		t.Fatalf("zero value should carry no payload")
	}
	if _, err := json.Marshal(v); err == nil {
		t.Fatalf("expected encoding a zero value to fail")
	}
}

func TestValueJSONKeepsLargeIntegers(t *testing.T) {
	v := IntValue("planner.memory.max_query_memory_per_node", ScopeSystem, 9007199254740993)
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"scope":"SYSTEM"`) || !strings.Contains(string(raw), `"kind":"int"`) {
		t.Fatalf("unexpected encoding %s", raw)
	}
	var decoded Value
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.AsInt() != 9007199254740993 {
		t.Fatalf("integer lost precision: %d", decoded.AsInt())
	}
}

func TestValueJSONRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown kind":     `{"name":"a","scope":"SYSTEM","kind":"decimal","value":1}`,
		"unknown scope":    `{"name":"a","scope":"QUERY","kind":"int","value":1}`,
		"payload mismatch": `{"name":"a","scope":"SYSTEM","kind":"bool","value":"yes"}`,
		"fractional int":   `{"name":"a","scope":"SYSTEM","kind":"int","value":1.5}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(payload), &v); err == nil {
				t.Fatalf("expected error decoding %s", payload)
			}
		})
	}
}

func TestParseScopeAndKind(t *testing.T) {
	if scope, err := ParseScope(" session "); err != nil || scope != ScopeSession {
		t.Fatalf("expected SESSION, got %v (%v)", scope, err)
	}
	if _, err := ParseScope("query"); err == nil {
		t.Fatalf("expected unknown scope error")
	}
	if kind, err := ParseKind("Long"); err != nil || kind != KindInt {
		t.Fatalf("expected int kind, got %v (%v)", kind, err)
	}
	var scope Scope
	if err := scope.UnmarshalText([]byte("system")); err != nil || scope != ScopeSystem {
		t.Fatalf("UnmarshalText: %v %v", scope, err)
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical("store.parquet.block-size") {
		t.Fatalf("lowercase key should be canonical")
	}
	if IsCanonical("Store.Format") {
		t.Fatalf("mixed case key should not be canonical")
	}
}
