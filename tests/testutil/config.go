// Package testutil provides test utilities and helpers for lade tests.
//
// This package contains shared test infrastructure: a mock command executor
// for CLI-backed providers, fake CLI scripts, rule-tree builders and log
// capture helpers.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// RuleTree builds a directory hierarchy holding lade rule files.
//
// Example usage:
//
//	tree := NewRuleTree(t)
//	tree.WriteRules("", "lade.yaml", map[string]any{
//	    "deploy.*": map[string]any{"DB_PASS": "vault://host/secret/app/password"},
//	})
//	tree.Write("app/api", "lade.yml", "...")
//	cwd := tree.Dir("app/api")
type RuleTree struct {
	Root string
	t    *testing.T
}

// NewRuleTree creates an empty tree rooted in a fresh temporary directory.
func NewRuleTree(t *testing.T) *RuleTree {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	return &RuleTree{Root: root, t: t}
}

// Dir returns the absolute path of rel, creating it if needed.
func (r *RuleTree) Dir(rel string) string {
	r.t.Helper()

	dir := filepath.Join(r.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.t.Fatalf("Failed to create %s: %v", dir, err)
	}
	return dir
}

// Write stores content as rel/name and returns its path.
func (r *RuleTree) Write(rel, name, content string) string {
	r.t.Helper()

	path := filepath.Join(r.Dir(rel), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// WriteRules marshals rules to YAML and stores them as rel/name.
func (r *RuleTree) WriteRules(rel, name string, rules map[string]any) string {
	r.t.Helper()

	data, err := yaml.Marshal(rules)
	if err != nil {
		r.t.Fatalf("Failed to marshal rules: %v", err)
	}
	return r.Write(rel, name, string(data))
}
