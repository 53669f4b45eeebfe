package opts

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Registry is the immutable catalogue of option descriptors keyed by canonical
// name. It is built once at startup and shared read-only.
type Registry struct {
	descriptors map[Name]*Descriptor
	names       []Name
}

// NewRegistry indexes descriptors by canonical name. Two descriptors that
// normalise to the same name fail with ErrDuplicateOption.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	reg := &Registry{descriptors: make(map[Name]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if _, exists := reg.descriptors[d.Name()]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateOption, d.Name())
		}
		reg.descriptors[d.Name()] = d
		reg.names = append(reg.names, d.Name())
	}
	sort.Slice(reg.names, func(i, j int) bool { return reg.names[i] < reg.names[j] })
	return reg, nil
}

// MustRegistry is NewRegistry for package-level catalogues; it panics on error.
func MustRegistry(descriptors ...*Descriptor) *Registry {
	reg, err := NewRegistry(descriptors...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup resolves name case-insensitively.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.descriptors[NormalizeName(name)]
	return d, ok
}

// Descriptor resolves name or returns *UnknownOptionError.
func (r *Registry) Descriptor(name string) (*Descriptor, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownOptionError{Name: name}
	}
	return d, nil
}

// Descriptors returns every descriptor sorted by name.
func (r *Registry) Descriptors() []*Descriptor {
	if r == nil {
		return nil
	}
	out := make([]*Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.descriptors[name])
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// FoldOption configures FoldBootConfig.
type FoldOption func(*foldConfig)

type foldConfig struct {
	logger *zap.Logger
}

// FoldWithLogger reports which defaults came from boot configuration.
func FoldWithLogger(logger *zap.Logger) FoldOption {
	return func(cfg *foldConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// FoldBootConfig returns a registry whose defaults are read from boot under
// prefix+name. A missing key keeps the compiled default. A wrong type, a value
// rejected by the descriptor rules, or any other lookup failure aborts the
// fold. The input registry is not modified.
func FoldBootConfig(reg *Registry, boot BootConfig, prefix string, opts ...FoldOption) (*Registry, error) {
	cfg := foldConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if reg == nil {
		return nil, errors.New("opts: fold requires a registry")
	}
	if boot == nil {
		return reg, nil
	}

	folded := &Registry{
		descriptors: make(map[Name]*Descriptor, len(reg.descriptors)),
		names:       append([]Name(nil), reg.names...),
	}
	for _, name := range reg.names {
		d := reg.descriptors[name]
		value, err := d.LoadBootDefault(boot, prefix)
		switch {
		case errors.Is(err, ErrBootKeyMissing):
			cfg.logger.Debug("boot config has no default, keeping compiled value",
				zap.String("option", string(name)),
				zap.String("path", prefix+string(name)),
			)
			folded.descriptors[name] = d
			continue
		case err != nil:
			return nil, fmt.Errorf("opts: fold %q: %w", name, err)
		}
		if err := d.Validate(value); err != nil {
			return nil, fmt.Errorf("opts: fold %q: %w", name, err)
		}
		cfg.logger.Info("option default loaded from boot config",
			zap.String("option", string(name)),
			zap.Stringer("value", value),
		)
		folded.descriptors[name] = d.WithDefault(value)
	}
	return folded, nil
}
