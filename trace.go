package opts

import (
	"encoding/json"
)

// Layer names reported by Explain, strongest first.
const (
	SourceStore    = "store"
	SourceBoot     = "boot"
	SourceCompiled = "compiled"
)

// Trace captures how the effective value of one option was produced.
type Trace struct {
	Option Name         `json:"option"`
	Scope  Scope        `json:"scope"`
	Source string       `json:"source"`
	Value  Value        `json:"value"`
	Layers []Provenance `json:"layers"`
}

// Provenance details whether a layer held a value for the traced option.
type Provenance struct {
	Source string `json:"source"`
	Found  bool   `json:"found"`
	Value  *Value `json:"value,omitempty"`
}

func provenance(source string, value Value, found bool) Provenance {
	p := Provenance{Source: source, Found: found}
	if found && !value.IsZero() {
		v := value
		p.Value = &v
	}
	return p
}

// ToJSON serialises the trace for logging or diagnostics endpoints.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
