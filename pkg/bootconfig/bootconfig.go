// Package bootconfig loads the node's boot configuration from TOML and YAML
// files and answers typed lookups by dotted path. Later files override
// earlier ones key by key.
package bootconfig

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/layering"
	"github.com/pelletier/go-toml/v2"
)

// Format names a supported file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for files whose extension is not
// recognised.
var ErrUnsupportedFormat = errors.New("bootconfig: unsupported format")

// Config is an immutable, merged configuration tree.
type Config struct {
	tree    map[string]any
	sources []string
}

var _ opts.BootConfig = (*Config)(nil)

// Load reads each path and merges them, later paths taking precedence.
func Load(paths ...string) (*Config, error) {
	layers := make([]map[string]any, 0, len(paths))
	sources := make([]string, 0, len(paths))
	for i := len(paths) - 1; i >= 0; i-- {
		path := strings.TrimSpace(paths[i])
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("bootconfig: read %s: %w", path, err)
		}
		format, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		tree, err := Parse(format, data)
		if err != nil {
			return nil, fmt.Errorf("bootconfig: %s: %w", path, err)
		}
		layers = append(layers, tree)
		sources = append([]string{path}, sources...)
	}
	return &Config{tree: layering.MergeMaps(layers...), sources: sources}, nil
}

// FromMap builds a Config from an already decoded tree. Layers are merged
// strongest first.
func FromMap(layers ...map[string]any) *Config {
	return &Config{tree: layering.MergeMaps(layers...)}
}

// FormatFromPath picks the decoder from the file extension. JSON files are
// read with the YAML decoder.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Parse decodes data into a tree.
func Parse(format Format, data []byte) (map[string]any, error) {
	out := map[string]any{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return out, nil
}

// Sources lists the files that were merged, weakest first.
func (c *Config) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Has reports whether path resolves to a value.
func (c *Config) Has(path string) bool {
	_, ok := resolve(c.tree, strings.Split(path, "."))
	return ok
}

// Lookup resolves path and converts the value to kind. Dotted segments may be
// nested tables or literal dotted keys, so `node.options."planner.width"`
// and a fully nested table both match. A missing path returns an error
// matching opts.ErrBootKeyMissing.
func (c *Config) Lookup(path string, kind opts.Kind) (opts.Payload, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: %s", opts.ErrBootKeyMissing, path)
	}
	raw, ok := resolve(c.tree, strings.Split(path, "."))
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: %s", opts.ErrBootKeyMissing, path)
	}
	payload, err := convert(raw, kind)
	if err != nil {
		return nil, &opts.BootConfigError{Path: path, Want: kind, Err: err}
	}
	return payload, nil
}

// resolve prefers the longest literal key at each level.
func resolve(tree map[string]any, segments []string) (any, bool) {
	for i := len(segments); i >= 1; i-- {
		value, ok := tree[strings.Join(segments[:i], ".")]
		if !ok {
			continue
		}
		if i == len(segments) {
			return value, true
		}
		if child, isTable := value.(map[string]any); isTable {
			if found, ok := resolve(child, segments[i:]); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func convert(raw any, kind opts.Kind) (opts.Payload, error) {
	switch kind {
	case opts.KindBool:
		return toBool(raw)
	case opts.KindInt:
		return toInt(raw)
	case opts.KindFloat:
		return toFloat(raw)
	case opts.KindString:
		return toString(raw)
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

func toBool(raw any) (opts.Payload, error) {
	switch typed := raw.(type) {
	case bool:
		return opts.Bool(typed), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "yes", "on":
			return opts.Bool(true), nil
		case "false", "no", "off":
			return opts.Bool(false), nil
		}
		return nil, fmt.Errorf("%q is not a boolean", typed)
	default:
		return nil, fmt.Errorf("%T is not a boolean", raw)
	}
}

func toInt(raw any) (opts.Payload, error) {
	switch typed := raw.(type) {
	case int:
		return opts.Int(typed), nil
	case int32:
		return opts.Int(typed), nil
	case int64:
		return opts.Int(typed), nil
	case uint32:
		return opts.Int(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", typed)
		}
		return opts.Int(int64(typed)), nil
	case float64:
		if typed != math.Trunc(typed) || typed >= math.MaxInt64 || typed < math.MinInt64 {
			return nil, fmt.Errorf("%v is not an integer", typed)
		}
		return opts.Int(int64(typed)), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", typed)
		}
		return opts.Int(n), nil
	default:
		return nil, fmt.Errorf("%T is not an integer", raw)
	}
}

func toFloat(raw any) (opts.Payload, error) {
	switch typed := raw.(type) {
	case float64:
		return opts.Float(typed), nil
	case float32:
		return opts.Float(typed), nil
	case int:
		return opts.Float(typed), nil
	case int64:
		return opts.Float(typed), nil
	case uint64:
		return opts.Float(typed), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", typed)
		}
		return opts.Float(f), nil
	default:
		return nil, fmt.Errorf("%T is not a number", raw)
	}
}

func toString(raw any) (opts.Payload, error) {
	switch typed := raw.(type) {
	case string:
		return opts.String(typed), nil
	case bool, int, int64, uint64, float64:
		return opts.String(fmt.Sprint(typed)), nil
	default:
		return nil, fmt.Errorf("%T is not a string", raw)
	}
}
