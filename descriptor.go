package opts

import (
	"fmt"
	"math"
)

// Descriptor is the static metadata for one option: its kind, compiled
// default, effective default (possibly replaced from boot configuration),
// visibility and validation rules. Descriptors are immutable; boot folding
// produces copies.
type Descriptor struct {
	name        Name
	compiled    Value
	def         Value
	fromBoot    bool
	internal    bool
	description string
	rules       []Rule
}

// DescriptorOption configures a Descriptor at construction.
type DescriptorOption func(*Descriptor)

// Internal hides the option from the external listing.
func Internal() DescriptorOption {
	return func(d *Descriptor) {
		d.internal = true
	}
}

// WithDescription documents the option.
func WithDescription(description string) DescriptorOption {
	return func(d *Descriptor) {
		d.description = description
	}
}

// WithRules attaches validation rules, checked in order.
func WithRules(rules ...Rule) DescriptorOption {
	return func(d *Descriptor) {
		for _, rule := range rules {
			if rule != nil {
				d.rules = append(d.rules, rule)
			}
		}
	}
}

// NewDescriptor builds a descriptor whose kind is taken from def. Catalog
// entries are declared at build time, so a missing default panics.
func NewDescriptor(name string, def Payload, opts ...DescriptorOption) *Descriptor {
	if def == nil {
		panic(fmt.Sprintf("opts: option %q declared without a default", name))
	}
	value := NewValue(name, ScopeSystem, def)
	d := &Descriptor{
		name:     value.Name(),
		compiled: value,
		def:      value,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Descriptor) Name() Name { return d.name }

func (d *Descriptor) Kind() Kind { return d.compiled.Kind() }

// Default returns the effective default: the boot configuration value when one
// was folded in, the compiled default otherwise.
func (d *Descriptor) Default() Value { return d.def }

// CompiledDefault returns the built-in fallback regardless of boot folding.
func (d *Descriptor) CompiledDefault() Value { return d.compiled }

// FromBoot reports whether Default came from boot configuration.
func (d *Descriptor) FromBoot() bool { return d.fromBoot }

func (d *Descriptor) Internal() bool { return d.internal }

func (d *Descriptor) Description() string { return d.description }

// Validate checks candidate against the descriptor kind and rules.
func (d *Descriptor) Validate(candidate Value) error {
	if candidate.Kind() != d.Kind() {
		return &ValidationError{
			Name:   string(d.name),
			Reason: fmt.Sprintf("expected %s value, got %s", d.Kind(), candidate.Kind()),
		}
	}
	if candidate.Kind() == KindFloat {
		if f := candidate.AsFloat(); math.IsNaN(f) || math.IsInf(f, 0) {
			return &ValidationError{Name: string(d.name), Reason: fmt.Sprintf("%g is not a finite number", f)}
		}
	}
	for _, rule := range d.rules {
		if err := rule.Check(candidate); err != nil {
			return &ValidationError{Name: string(d.name), Err: err}
		}
	}
	return nil
}

// LoadBootDefault reads prefix+name from boot. ErrBootKeyMissing is returned
// untouched so callers can recover from it; every other failure is final.
func (d *Descriptor) LoadBootDefault(boot BootConfig, prefix string) (Value, error) {
	path := prefix + string(d.name)
	payload, err := boot.Lookup(path, d.Kind())
	if err != nil {
		return Value{}, err
	}
	if payload == nil || payload.Kind() != d.Kind() {
		got := KindUnknown
		if payload != nil {
			got = payload.Kind()
		}
		return Value{}, &BootConfigError{Path: path, Want: d.Kind(), Got: got}
	}
	return NewValue(string(d.name), ScopeSystem, payload), nil
}

// WithDefault returns a copy of d whose effective default is value. The
// compiled default is kept for tracing.
func (d *Descriptor) WithDefault(value Value) *Descriptor {
	clone := *d
	clone.def = value.WithName(string(d.name)).WithScope(ScopeSystem)
	clone.fromBoot = true
	clone.rules = append([]Rule(nil), d.rules...)
	return &clone
}

// BoolOption is a boolean descriptor that doubles as a typed accessor.
type BoolOption struct{ *Descriptor }

// FloatOption is a float64 descriptor that doubles as a typed accessor.
type FloatOption struct{ *Descriptor }

// IntOption is an int64 descriptor that doubles as a typed accessor.
type IntOption struct{ *Descriptor }

// StringOption is a string descriptor that doubles as a typed accessor.
type StringOption struct{ *Descriptor }

func NewBoolOption(name string, def bool, opts ...DescriptorOption) BoolOption {
	return BoolOption{NewDescriptor(name, Bool(def), opts...)}
}

func NewFloatOption(name string, def float64, opts ...DescriptorOption) FloatOption {
	return FloatOption{NewDescriptor(name, Float(def), opts...)}
}

func NewIntOption(name string, def int64, opts ...DescriptorOption) IntOption {
	return IntOption{NewDescriptor(name, Int(def), opts...)}
}

func NewStringOption(name string, def string, opts ...DescriptorOption) StringOption {
	return StringOption{NewDescriptor(name, String(def), opts...)}
}

// Value builds a value for this option tagged with scope.
func (o BoolOption) Value(scope Scope, v bool) Value {
	return BoolValue(string(o.Name()), scope, v)
}

func (o FloatOption) Value(scope Scope, v float64) Value {
	return FloatValue(string(o.Name()), scope, v)
}

func (o IntOption) Value(scope Scope, v int64) Value {
	return IntValue(string(o.Name()), scope, v)
}

func (o StringOption) Value(scope Scope, v string) Value {
	return StringValue(string(o.Name()), scope, v)
}
