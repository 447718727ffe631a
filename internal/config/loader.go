package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/lade/internal/errors"
)

// FileNames are the rule file names looked up in every directory, in order
// of preference.
var FileNames = []string{"lade.yaml", "lade.yml"}

const mergeKey = "<<"

// Load discovers the rule files from dir up to the filesystem root and
// builds the rule set, root first.
func Load(dir string) (*RuleSet, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(files)
}

// Discover returns the rule file of every directory from dir up to the
// filesystem root, closest first. Directories without one are skipped.
func Discover(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, dserrors.UserError{
			Message: "Failed to resolve working directory",
			Details: err.Error(),
			Err:     err,
		}
	}

	var files []string
	for {
		if path, ok := ruleFileIn(abs); ok {
			files = append(files, path)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			break
		}
		abs = parent
	}
	return files, nil
}

func ruleFileIn(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadFiles parses files given closest first and returns their rules with
// the root-most file first, each file in document order.
func LoadFiles(files []string) (*RuleSet, error) {
	var matches []Match
	for i := len(files) - 1; i >= 0; i-- {
		fileMatches, err := LoadFile(files[i])
		if err != nil {
			return nil, err
		}
		matches = append(matches, fileMatches...)
	}
	return NewRuleSet(matches), nil
}

// LoadFile parses a single rule file. Rules are anchored to the file's
// directory.
func LoadFile(path string) ([]Match, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to read rule file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	matches, err := Parse(data, filepath.Dir(path))
	if err != nil {
		var cfgErr dserrors.ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.File = path
			return nil, cfgErr
		}
		return nil, err
	}
	return matches, nil
}

// Parse decodes a rule file's content. Merge keys at the top level are
// expanded, explicit patterns win over merged ones.
func Parse(data []byte, dir string) ([]Match, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, dserrors.ConfigError{
			Message:    fmt.Sprintf("invalid YAML syntax: %v", err),
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
			Err:        err,
		}
	}

	root := documentRoot(&doc)
	if root == nil {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, dserrors.ConfigError{
			Message:    "rule file must be a mapping of command patterns to rules",
			Suggestion: "Start each rule with a regular expression matching the command, e.g. '^npm run'",
		}
	}

	entries, err := mappingEntries(root)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any, len(entries))
	for _, e := range entries {
		var v any
		if err := e.value.Decode(&v); err != nil {
			return nil, dserrors.ConfigError{
				Field:   e.key,
				Message: fmt.Sprintf("invalid rule: %v", err),
				Err:     err,
			}
		}
		raw[e.key] = v
	}
	if err := validateRuleFile(raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    err.Error(),
			Suggestion: "Rules map variable names to references; use '.: {file: <path>}' to write a rule to a file",
			Err:        err,
		}
	}

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		pattern, err := regexp.Compile(e.key)
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      e.key,
				Message:    fmt.Sprintf("invalid regex: %v", err),
				Suggestion: "Patterns are Go regular expressions matched anywhere in the command",
				Err:        err,
			}
		}

		var rule Rule
		if err := e.value.Decode(&rule); err != nil {
			return nil, dserrors.ConfigError{
				Field:   e.key,
				Message: fmt.Sprintf("invalid rule: %v", err),
				Err:     err,
			}
		}

		matches = append(matches, Match{Pattern: pattern, Dir: dir, Rule: rule})
	}
	return matches, nil
}

type entry struct {
	key   string
	value *yaml.Node
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil
	}
	return root
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// mappingEntries flattens a mapping in document order. Keys pulled in through
// "<<" keep the position of the merge and never replace explicit keys.
func mappingEntries(m *yaml.Node) ([]entry, error) {
	explicit := map[string]bool{}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i]
		if isMerge(key) {
			continue
		}
		if explicit[key.Value] {
			return nil, dserrors.ConfigError{
				Field:   key.Value,
				Message: fmt.Sprintf("line %d: pattern defined twice", key.Line),
			}
		}
		explicit[key.Value] = true
	}

	var entries []entry
	seen := map[string]bool{}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if !isMerge(key) {
			entries = append(entries, entry{key: key.Value, value: value})
			seen[key.Value] = true
			continue
		}

		sources, err := mergeSources(value)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			merged, err := mappingEntries(src)
			if err != nil {
				return nil, err
			}
			for _, e := range merged {
				if explicit[e.key] || seen[e.key] {
					continue
				}
				entries = append(entries, e)
				seen[e.key] = true
			}
		}
	}
	return entries, nil
}

func isMerge(key *yaml.Node) bool {
	return key.Kind == yaml.ScalarNode && key.ShortTag() == "!!merge"
}

func mergeSources(value *yaml.Node) ([]*yaml.Node, error) {
	value = resolveAlias(value)
	switch value.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{value}, nil
	case yaml.SequenceNode:
		sources := make([]*yaml.Node, 0, len(value.Content))
		for _, item := range value.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, dserrors.ConfigError{
					Field:   mergeKey,
					Message: fmt.Sprintf("line %d: merge sequence must contain mappings", item.Line),
				}
			}
			sources = append(sources, item)
		}
		return sources, nil
	default:
		return nil, dserrors.ConfigError{
			Field:   mergeKey,
			Message: fmt.Sprintf("line %d: merge value must be a mapping or a sequence of mappings", value.Line),
		}
	}
}
