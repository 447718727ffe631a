package config

import (
	"path/filepath"
	"regexp"
	"sort"
)

// EnvOutput is the output key of rules exported to the environment.
const EnvOutput = ""

// Match is a compiled rule anchored to the directory of its rule file.
type Match struct {
	Pattern *regexp.Regexp
	Dir     string
	Rule    Rule
}

// Output returns where the rule's secrets go: EnvOutput, or the absolute
// path of the rule's file.
func (m Match) Output() string {
	if m.Rule.Config == nil || m.Rule.Config.File == "" {
		return EnvOutput
	}
	if filepath.IsAbs(m.Rule.Config.File) {
		return filepath.Clean(m.Rule.Config.File)
	}
	return filepath.Join(m.Dir, m.Rule.Config.File)
}

// RuleSet is the ordered list of rules of a cascade, root first.
type RuleSet struct {
	matches []Match
}

// NewRuleSet wraps matches, which must already be ordered root first.
func NewRuleSet(matches []Match) *RuleSet {
	return &RuleSet{matches: matches}
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.matches)
}

// Collect returns every rule whose pattern matches anywhere in command, in
// cascade order. Later matches win when their results are merged.
func (s *RuleSet) Collect(command string) []Match {
	if s == nil {
		return nil
	}
	var collected []Match
	for _, m := range s.matches {
		if m.Pattern.MatchString(command) {
			collected = append(collected, m)
		}
	}
	return collected
}

// Keys returns, per output, the sorted variable names that the rules
// matching command declare, whatever the identity.
func (s *RuleSet) Keys(command string) map[string][]string {
	seen := map[string]map[string]struct{}{}
	for _, m := range s.Collect(command) {
		out := m.Output()
		if seen[out] == nil {
			seen[out] = map[string]struct{}{}
		}
		for name := range m.Rule.Secrets {
			seen[out][name] = struct{}{}
		}
	}

	keys := make(map[string][]string, len(seen))
	for out, names := range seen {
		list := make([]string, 0, len(names))
		for name := range names {
			list = append(list, name)
		}
		sort.Strings(list)
		keys[out] = list
	}
	return keys
}
