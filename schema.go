package opts

import "fmt"

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors is a flat list of FieldDescriptor.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI is an OpenAPI 3 document with one object schema
	// holding every option.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument pairs a generated document with its format.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// FieldDescriptor describes one option for tooling.
type FieldDescriptor struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Default     any    `json:"default"`
	Description string `json:"description,omitempty"`
	Internal    bool   `json:"internal,omitempty"`
	Source      string `json:"source"`
}

// SchemaOption configures Schema.
type SchemaOption func(*schemaConfig)

type schemaConfig struct {
	format  SchemaFormat
	title   string
	version string
}

// SchemaWithFormat selects the output format. The default is
// SchemaFormatDescriptors.
func SchemaWithFormat(format SchemaFormat) SchemaOption {
	return func(cfg *schemaConfig) {
		if format != "" {
			cfg.format = format
		}
	}
}

// SchemaWithInfo sets the OpenAPI info block.
func SchemaWithInfo(title, version string) SchemaOption {
	return func(cfg *schemaConfig) {
		if title != "" {
			cfg.title = title
		}
		if version != "" {
			cfg.version = version
		}
	}
}

// Schema describes every registered option, sorted by name.
func (r *Registry) Schema(opts ...SchemaOption) (SchemaDocument, error) {
	cfg := schemaConfig{
		format:  SchemaFormatDescriptors,
		title:   "Node options",
		version: "1.0.0",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	fields := r.fieldDescriptors()
	switch cfg.format {
	case SchemaFormatDescriptors:
		return SchemaDocument{Format: cfg.format, Document: fields}, nil
	case SchemaFormatOpenAPI:
		return SchemaDocument{Format: cfg.format, Document: openAPIDocument(cfg, fields)}, nil
	default:
		return SchemaDocument{}, fmt.Errorf("opts: unsupported schema format %q", cfg.format)
	}
}

func (r *Registry) fieldDescriptors() []FieldDescriptor {
	fields := []FieldDescriptor{}
	for _, d := range r.Descriptors() {
		source := SourceCompiled
		if d.FromBoot() {
			source = SourceBoot
		}
		fields = append(fields, FieldDescriptor{
			Path:        string(d.Name()),
			Type:        d.Kind().String(),
			Default:     d.Default().Raw(),
			Description: d.Description(),
			Internal:    d.Internal(),
			Source:      source,
		})
	}
	return fields
}

func openAPIDocument(cfg schemaConfig, fields []FieldDescriptor) map[string]any {
	properties := make(map[string]any, len(fields))
	for _, field := range fields {
		property := map[string]any{
			"type":             openAPIType(field.Type),
			"default":          field.Default,
			"x-default-source": field.Source,
		}
		if field.Description != "" {
			property["description"] = field.Description
		}
		if field.Internal {
			property["x-internal"] = true
		}
		properties[field.Path] = property
	}
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   cfg.title,
			"version": cfg.version,
		},
		"paths": map[string]any{},
		"components": map[string]any{
			"schemas": map[string]any{
				"Options": map[string]any{
					"type":                 "object",
					"properties":           properties,
					"additionalProperties": false,
				},
			},
		},
	}
}

func openAPIType(kind string) string {
	switch kind {
	case "bool":
		return "boolean"
	case "float":
		return "number"
	case "int":
		return "integer"
	default:
		return "string"
	}
}
