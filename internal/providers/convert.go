package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// documentFormat returns the lower-cased extension of path without its dot.
func documentFormat(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// documentJSON converts a json, yaml, toml or ini document to JSON so every
// format is queried the same way.
func documentJSON(path string, data []byte) ([]byte, error) {
	format := documentFormat(path)
	switch format {
	case "json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", path)
		}
		return data, nil
	case "yaml", "yml":
		return yamlToJSON(data)
	case "toml":
		return tomlToJSON(data)
	case "ini":
		return iniToJSON(data)
	case "":
		return nil, fmt.Errorf("no file format found for %s", path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML rewrites map[any]any, which yaml.v3 produces for mappings
// with non-string keys, into map[string]any that encoding/json accepts.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeYAML(inner)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = normalizeYAML(inner)
		}
		return out
	case []any:
		for i, inner := range t {
			t[i] = normalizeYAML(inner)
		}
		return t
	default:
		return v
	}
}

func tomlToJSON(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return json.Marshal(doc)
}

// iniToJSON maps keys outside any section to the top level and every named
// section to a nested object.
func iniToJSON(data []byte) ([]byte, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse INI: %w", err)
	}

	doc := map[string]any{}
	for _, section := range cfg.Sections() {
		target := doc
		if section.Name() != ini.DefaultSection {
			nested := map[string]any{}
			doc[section.Name()] = nested
			target = nested
		}
		for _, key := range section.Keys() {
			target[key.Name()] = key.Value()
		}
	}
	return json.Marshal(doc)
}

// gjsonPath translates a jq-like query (".", ".a.b[0]", `.["a.b"]`,
// `."a b"`) into a gjson path.
func gjsonPath(query string) (string, error) {
	if !strings.HasPrefix(query, ".") && !strings.HasPrefix(query, "[") {
		return "", fmt.Errorf("cannot compile query %s: must start with '.'", query)
	}

	var parts []string
	rest := query
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, `["`), strings.HasPrefix(rest, `."`):
			name, tail, err := unquotePrefix(rest[1:])
			if err != nil {
				return "", fmt.Errorf("cannot compile query %s: %w", query, err)
			}
			if rest[0] == '[' {
				if !strings.HasPrefix(tail, "]") {
					return "", fmt.Errorf("cannot compile query %s: missing ']'", query)
				}
				tail = tail[1:]
			}
			parts = append(parts, escapeGJSON(name))
			rest = tail
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", fmt.Errorf("cannot compile query %s: missing ']'", query)
			}
			index := rest[1:end]
			if _, err := strconv.Atoi(index); err != nil {
				return "", fmt.Errorf("cannot compile query %s: invalid index %q", query, index)
			}
			parts = append(parts, index)
			rest = rest[end+1:]
		case rest[0] == '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			if name := rest[:end]; name != "" {
				parts = append(parts, escapeGJSON(name))
			}
			rest = rest[end:]
		default:
			return "", fmt.Errorf("cannot compile query %s: unexpected %q", query, rest)
		}
	}

	if len(parts) == 0 {
		return "@this", nil
	}
	return strings.Join(parts, "."), nil
}

// unquotePrefix reads a double-quoted string at the start of s and returns
// its value and what follows it.
func unquotePrefix(s string) (string, string, error) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			name, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", "", err
			}
			return name, s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated string %s", s)
}

// escapeGJSON escapes every character gjson may treat as path syntax.
func escapeGJSON(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 128 && !isPlainPathChar(byte(r)) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPlainPathChar(c byte) bool {
	return c == '_' || c == '-' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// compactJSON renders a raw JSON fragment without insignificant whitespace.
func compactJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return raw
	}
	return buf.String()
}
