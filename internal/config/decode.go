package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Decode strictly decodes data; the format is picked from the extension of
// name (.yaml/.yml, anything else is JSON). Unknown fields and a second
// document are rejected.
func Decode(name string, data []byte) (*Config, error) {
	format := "json"
	if isYAML(name) {
		format = "yaml"
		jb, err := yamlDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%s (yaml): %w", name, err)
		}
		data = jb
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s (%s): %w", name, format, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%s: trailing data after config", name)
	}
	return &cfg, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlDocument turns a single YAML document into JSON so both formats go
// through the same strict decoder.
func yamlDocument(data []byte) ([]byte, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []byte("{}"), nil
		}
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("trailing data after config: only one document is allowed")
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(stringKeys(doc))
}

// stringKeys rewrites map[any]any (non-string YAML keys) into JSON-friendly maps.
func stringKeys(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range x {
			x[k] = stringKeys(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = stringKeys(val)
		}
		return x
	}
	return v
}

// Duration parses an optional, non-negative duration; empty means zero.
// field names the setting in errors, e.g. "destinations[0].retry.base".
func Duration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %w", field, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %q is negative", field, raw)
	}
	return d, nil
}
