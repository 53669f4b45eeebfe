package opts

import (
	"context"
	"errors"
	"sort"
)

// OverrideReader exposes the overrides held by a manager without defaults.
type OverrideReader interface {
	Override(ctx context.Context, name string) (Value, bool, error)
	Overrides(ctx context.Context) (OptionList, error)
}

// Lister lists effective option values.
type Lister interface {
	Iterate(ctx context.Context) (OptionList, error)
}

// SystemReader is what a FallbackReader needs from the node-wide manager.
type SystemReader interface {
	Reader
	Lister
}

// FallbackReader resolves options for one session: a session override wins,
// otherwise the system manager answers, which in turn falls back to the
// option default.
type FallbackReader struct {
	session OverrideReader
	system  SystemReader
}

// NewFallbackReader layers session over system.
func NewFallbackReader(session OverrideReader, system SystemReader) *FallbackReader {
	return &FallbackReader{session: session, system: system}
}

// GetOption implements Reader.
func (f *FallbackReader) GetOption(ctx context.Context, name string) (Value, error) {
	if f.session != nil {
		value, ok, err := f.session.Override(ctx, name)
		if err != nil {
			return Value{}, err
		}
		if ok {
			return value, nil
		}
	}
	if f.system == nil {
		return Value{}, errors.New("opts: fallback reader has no system manager")
	}
	return f.system.GetOption(ctx, name)
}

// Iterate returns the system view with session overrides applied.
func (f *FallbackReader) Iterate(ctx context.Context) (OptionList, error) {
	if f.system == nil {
		return nil, errors.New("opts: fallback reader has no system manager")
	}
	base, err := f.system.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	merged := base.Map()
	if f.session != nil {
		overrides, err := f.session.Overrides(ctx)
		if err != nil {
			return nil, err
		}
		for _, value := range overrides {
			merged[value.Name()] = value
		}
	}
	out := make(OptionList, 0, len(merged))
	for _, value := range merged {
		out = append(out, value)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}
