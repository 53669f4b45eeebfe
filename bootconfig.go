package opts

// DefaultBootPrefix namespaces option defaults inside boot configuration.
const DefaultBootPrefix = "node.options."

// BootConfig is the read-only configuration loaded when the node starts.
// Lookup returns ErrBootKeyMissing when path is absent; any other error is
// treated as fatal by FoldBootConfig.
type BootConfig interface {
	Lookup(path string, kind Kind) (Payload, error)
}

// BootConfigFunc adapts a function to BootConfig.
type BootConfigFunc func(path string, kind Kind) (Payload, error)

// Lookup implements BootConfig.
func (f BootConfigFunc) Lookup(path string, kind Kind) (Payload, error) {
	if f == nil {
		return nil, ErrBootKeyMissing
	}
	return f(path, kind)
}
