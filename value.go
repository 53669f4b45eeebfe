package opts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the payload type carried by a Value.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindFloat
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// ParseKind converts the textual form produced by Kind.String.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bool", "boolean":
		return KindBool, nil
	case "float", "float64", "double":
		return KindFloat, nil
	case "int", "int64", "integer", "long":
		return KindInt, nil
	case "string":
		return KindString, nil
	default:
		return KindUnknown, fmt.Errorf("opts: unknown kind %q", value)
	}
}

// Scope tags the manager allowed to own a value.
type Scope int

const (
	ScopeUnknown Scope = iota
	// ScopeSystem values are node-wide and survive restarts.
	ScopeSystem
	// ScopeSession values live as long as one connection.
	ScopeSession
)

func (s Scope) String() string {
	switch s {
	case ScopeSystem:
		return "SYSTEM"
	case ScopeSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ParseScope converts the textual form produced by Scope.String.
func ParseScope(value string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "SYSTEM":
		return ScopeSystem, nil
	case "SESSION":
		return ScopeSession, nil
	default:
		return ScopeUnknown, fmt.Errorf("opts: unknown scope %q", value)
	}
}

// MarshalText encodes the scope as SYSTEM or SESSION.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the form written by MarshalText.
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Payload is the single typed datum held by a Value. The set of
// implementations is closed: Bool, Float, Int and String.
type Payload interface {
	Kind() Kind
	raw() any
}

type (
	Bool   bool
	Float  float64
	Int    int64
	String string
)

func (Bool) Kind() Kind   { return KindBool }
func (Float) Kind() Kind  { return KindFloat }
func (Int) Kind() Kind    { return KindInt }
func (String) Kind() Kind { return KindString }

func (p Bool) raw() any   { return bool(p) }
func (p Float) raw() any  { return float64(p) }
func (p Int) raw() any    { return int64(p) }
func (p String) raw() any { return string(p) }

// Value is a named, scoped option value. The zero Value has no payload.
type Value struct {
	name    Name
	scope   Scope
	payload Payload
}

// NewValue builds a Value, normalizing name.
func NewValue(name string, scope Scope, payload Payload) Value {
	return Value{name: NormalizeName(name), scope: scope, payload: payload}
}

// BoolValue builds a boolean Value.
func BoolValue(name string, scope Scope, value bool) Value {
	return NewValue(name, scope, Bool(value))
}

// FloatValue builds a float64 Value.
func FloatValue(name string, scope Scope, value float64) Value {
	return NewValue(name, scope, Float(value))
}

// IntValue builds an int64 Value.
func IntValue(name string, scope Scope, value int64) Value {
	return NewValue(name, scope, Int(value))
}

// StringValue builds a string Value.
func StringValue(name string, scope Scope, value string) Value {
	return NewValue(name, scope, String(value))
}

func (v Value) Name() Name { return v.name }

func (v Value) Scope() Scope { return v.scope }

func (v Value) Payload() Payload { return v.payload }

// Kind returns the payload kind, KindUnknown for the zero Value.
func (v Value) Kind() Kind {
	if v.payload == nil {
		return KindUnknown
	}
	return v.payload.Kind()
}

// IsZero reports whether v carries no payload.
func (v Value) IsZero() bool {
	return v.payload == nil
}

// Raw returns the payload as a plain Go value (bool, float64, int64, string).
func (v Value) Raw() any {
	if v.payload == nil {
		return nil
	}
	return v.payload.raw()
}

// AsBool returns the boolean payload. It panics when v is not a bool.
func (v Value) AsBool() bool {
	return bool(mustPayload[Bool](v, KindBool))
}

// AsFloat returns the float64 payload. It panics when v is not a float.
func (v Value) AsFloat() float64 {
	return float64(mustPayload[Float](v, KindFloat))
}

// AsInt returns the int64 payload. It panics when v is not an int.
func (v Value) AsInt() int64 {
	return int64(mustPayload[Int](v, KindInt))
}

// AsString returns the string payload. It panics when v is not a string.
func (v Value) AsString() string {
	return string(mustPayload[String](v, KindString))
}

func mustPayload[P Payload](v Value, want Kind) P {
	p, ok := v.payload.(P)
	if !ok {
		panic(fmt.Sprintf("opts: option %q holds %s, not %s", v.name, v.Kind(), want))
	}
	return p
}

// WithName returns a copy of v under name.
func (v Value) WithName(name string) Value {
	v.name = NormalizeName(name)
	return v
}

// WithScope returns a copy of v tagged with scope.
func (v Value) WithScope(scope Scope) Value {
	v.scope = scope
	return v
}

// Equal compares name and payload. The scope tag is ignored so a session write
// compares equal to the SYSTEM-tagged default it matches.
func (v Value) Equal(other Value) bool {
	return v.name == other.name && v.payload == other.payload
}

func (v Value) String() string {
	return fmt.Sprintf("%s=%s (%s)", v.name, formatPayload(v.payload), v.scope)
}

func formatPayload(p Payload) string {
	switch typed := p.(type) {
	case nil:
		return "<nil>"
	case Bool:
		return strconv.FormatBool(bool(typed))
	case Float:
		return strconv.FormatFloat(float64(typed), 'g', -1, 64)
	case Int:
		return strconv.FormatInt(int64(typed), 10)
	case String:
		return strconv.Quote(string(typed))
	default:
		return fmt.Sprint(typed)
	}
}

type valueJSON struct {
	Name  string          `json:"name"`
	Scope string          `json:"scope"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes v as {"name","scope","kind","value"}.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.payload == nil {
		return nil, fmt.Errorf("opts: cannot encode option %q without payload", v.name)
	}
	raw, err := json.Marshal(v.payload.raw())
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{
		Name:  string(v.name),
		Scope: v.scope.String(),
		Kind:  v.Kind().String(),
		Value: raw,
	})
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var wire valueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind, err := ParseKind(wire.Kind)
	if err != nil {
		return err
	}
	scope, err := ParseScope(wire.Scope)
	if err != nil {
		return err
	}
	payload, err := decodePayload(kind, wire.Value)
	if err != nil {
		return fmt.Errorf("opts: decode option %q: %w", wire.Name, err)
	}
	*v = NewValue(wire.Name, scope, payload)
	return nil
}

func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return Float(f), nil
	case KindInt:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, err
		}
		return Int(i), nil
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}
