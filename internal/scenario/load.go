package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the decoder from the file extension. Anything that
// is not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadDescriptor reads and validates a scenario file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseDescriptor(data, FormatFromPath(path))
}

// ParseDescriptor decodes a descriptor and validates it. YAML is normalized
// through JSON so both formats share the same field names and value rules.
func ParseDescriptor(data []byte, format Format) (*Descriptor, error) {
	if format == FormatYAML {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%w: parsing scenario YAML: %v", ErrValidationFailure, err)
		}
		converted, err := json.Marshal(normalizeYAML(tree))
		if err != nil {
			return nil, fmt.Errorf("%w: converting scenario YAML: %v", ErrValidationFailure, err)
		}
		data = converted
	}

	var d Descriptor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: parsing scenario: %v", ErrValidationFailure, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// normalizeYAML rewrites map[any]any nodes, which encoding/json rejects.
func normalizeYAML(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			n[k] = normalizeYAML(v)
		}
		return n
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return out
	case []any:
		for i, v := range n {
			n[i] = normalizeYAML(v)
		}
		return n
	default:
		return n
	}
}
