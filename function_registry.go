package opts

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Function is a helper callable from expression rules.
type Function func(args ...any) (any, error)

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FunctionRegistry holds helpers shared by expression rules. Names are case
// sensitive and must be identifiers valid in every engine.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register adds fn under name. Names shadowing a rule binding or an existing
// function are rejected.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("opts: function %q is nil", name)
	}
	if !functionName.MatchString(name) {
		return fmt.Errorf("opts: function name %q is not an identifier", name)
	}
	if _, reserved := bindingNames[name]; reserved {
		return fmt.Errorf("opts: function name %q shadows a rule binding", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("opts: function %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// MustRegister is Register for package-level setup.
func (r *FunctionRegistry) MustRegister(name string, fn Function) *FunctionRegistry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Clone returns a copy that later registrations on r do not affect.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call runs the function registered as name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("opts: function %q not registered", name)
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("opts: function %q not registered", name)
	}
	return fn(args...)
}

// Bind returns a closure over Call for engines that take plain Go funcs.
func (r *FunctionRegistry) Bind(name string) Function {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// Names returns the registered names in order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PowerOfTwo reports whether its single integer argument is a positive power
// of two. It is registered by default as pow2.
func PowerOfTwo(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("pow2 takes one argument, got %d", len(args))
	}
	var n int64
	switch v := args[0].(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case float64:
		if v != float64(int64(v)) {
			return false, nil
		}
		n = int64(v)
	default:
		return nil, fmt.Errorf("pow2 wants an integer, got %T", args[0])
	}
	return n > 0 && n&(n-1) == 0, nil
}

// DefaultFunctions returns a registry with the helpers rules rely on most.
func DefaultFunctions() *FunctionRegistry {
	return NewFunctionRegistry().MustRegister("pow2", PowerOfTwo)
}
