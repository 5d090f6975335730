package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// The daemon accepts both config.yaml and config.json. YAML input is
// converted to JSON bytes so a single strict decoder (with
// DisallowUnknownFields) covers both formats; a typo like
// `ring_intervall:` is rejected either way.
//
// coerceToJSONBytes returns (jsonBytes, format, err) where format is
// "json" or "yaml".
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	if !isYAMLPath(path) {
		return data, "json", nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
	}

	j, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return nil, "yaml", fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, "yaml", nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// normalizeYAML rewrites map keys to strings recursively. YAML allows
// non-string keys, which json.Marshal refuses.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
