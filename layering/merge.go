// Package layering deep-merges configuration trees decoded from several
// files. Layers are ordered strongest first: a key set in an earlier layer
// wins, nested tables are merged key by key, and any other value (including
// lists) is replaced wholesale.
package layering

// MergeMaps composes layers ordered from strongest to weakest into a new tree.
// Inputs are not modified.
func MergeMaps(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = overlay(merged, layers[i])
	}
	return merged
}

// overlay returns weak with strong applied on top.
func overlay(weak, strong map[string]any) map[string]any {
	out := cloneMap(weak)
	for key, value := range strong {
		strongTable, strongIsTable := asTable(value)
		weakTable, weakIsTable := asTable(out[key])
		if strongIsTable && weakIsTable {
			out[key] = overlay(weakTable, strongTable)
			continue
		}
		out[key] = cloneValue(value)
	}
	return out
}

// asTable accepts the table shapes produced by the TOML and YAML decoders.
func asTable(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			name, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[name] = inner
		}
		return out, true
	default:
		return nil, false
	}
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	if table, ok := asTable(value); ok {
		return cloneMap(table)
	}
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = cloneValue(item)
		}
		return out
	}
	return value
}
