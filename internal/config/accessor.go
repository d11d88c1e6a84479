package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// toMap renders cfg as its generic JSON document.
func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPath retrieves a config value by dot-notation path (e.g. "chat.mentionTag").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid array index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path, updating cfg in place.
// String values are converted to the Go type of the target field, so
// "-100123" stays a string for chat.name and becomes a number for
// delivery.maxRetries. List fields take a comma-separated string.
func SetByPath(cfg *Config, path string, value any) error {
	parts := strings.Split(path, ".")
	ft, err := fieldType(reflect.TypeOf(*cfg), parts)
	if err != nil {
		return err
	}
	converted, err := convertValue(ft, value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	m, err := toMap(cfg)
	if err != nil {
		return err
	}
	parent := m
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key].(map[string]any)
		if !ok {
			return fmt.Errorf("cannot traverse into %s", key)
		}
		parent = child
	}
	parent[parts[len(parts)-1]] = converted

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// fieldType walks struct fields by their JSON names.
func fieldType(t reflect.Type, parts []string) (reflect.Type, error) {
	for _, key := range parts {
		if t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("cannot set inside %s at %s", t.Kind(), key)
		}
		f, ok := fieldByJSONName(t, key)
		if !ok {
			return nil, fmt.Errorf("key not found: %s", strings.Join(parts, "."))
		}
		t = f.Type
	}
	if t.Kind() == reflect.Struct {
		return nil, fmt.Errorf("%s is a section, not a value", strings.Join(parts, "."))
	}
	return t, nil
}

func fieldByJSONName(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// convertValue turns command-line strings into a JSON value for a field of type t.
func convertValue(t reflect.Type, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	switch t.Kind() {
	case reflect.String:
		return s, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("expected true or false, got %q", s)
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", s)
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", s)
		}
		return f, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			items := []string{}
			for _, item := range strings.Split(s, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			return items, nil
		}
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Generation.ThinkingPhrases = append([]string(nil), cfg.Generation.ThinkingPhrases...)
	out.Delivery.InjectOrder = append([]string(nil), cfg.Delivery.InjectOrder...)
	if out.Telegram.Token != "" && !isEnvRef(out.Telegram.Token) {
		out.Telegram.Token = maskString(out.Telegram.Token)
	}
	return &out
}

// isEnvRef reports whether s is exactly one ${VAR} reference.
func isEnvRef(s string) bool {
	loc := envVarPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns every leaf config path with its current value.
func ListPaths(cfg *Config) map[string]any {
	m, err := toMap(cfg)
	if err != nil {
		return nil
	}
	result := make(map[string]any)
	flattenMap("", m, result)
	return result
}

func flattenMap(prefix string, m map[string]any, result map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenMap(path, child, result)
			continue
		}
		result[path] = v
	}
}
