package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultUser is the per-user key used when the identity has no entry.
const DefaultUser = "."

// SecretSpec is either a plain reference shared by everyone or a per-user
// map of references. A nil entry in the map explicitly opts that user out.
type SecretSpec struct {
	Plain   string
	PerUser map[string]*string
	perUser bool
}

// PlainSecret creates a spec resolving to ref for every identity.
func PlainSecret(ref string) SecretSpec {
	return SecretSpec{Plain: ref}
}

// PerUserSecret creates a spec keyed by username, with DefaultUser as fallback.
func PerUserSecret(refs map[string]*string) SecretSpec {
	return SecretSpec{PerUser: refs, perUser: true}
}

// IsPerUser reports whether the spec depends on the identity.
func (s SecretSpec) IsPerUser() bool {
	return s.perUser
}

// Select returns the reference for identity. An empty identity means none
// could be determined. The second result is false when the identity has no
// applicable entry, which is not an error: the variable is simply skipped.
func (s SecretSpec) Select(identity string) (string, bool) {
	if !s.perUser {
		return s.Plain, true
	}
	if identity != "" {
		if ref, ok := s.PerUser[identity]; ok {
			if ref == nil {
				return "", false
			}
			return *ref, true
		}
	}
	if ref, ok := s.PerUser[DefaultUser]; ok && ref != nil {
		return *ref, true
	}
	return "", false
}

// UnmarshalYAML accepts a scalar reference or a mapping of user to reference.
func (s *SecretSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			return fmt.Errorf("line %d: secret must be a reference or a per-user mapping, got null", value.Line)
		}
		*s = PlainSecret(value.Value)
		return nil
	case yaml.MappingNode:
		refs := map[string]*string{}
		if err := value.Decode(&refs); err != nil {
			return err
		}
		*s = PerUserSecret(refs)
		return nil
	case yaml.AliasNode:
		return s.UnmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("line %d: secret must be a reference or a per-user mapping", value.Line)
	}
}

// RuleConfig is the optional "." entry of a rule.
type RuleConfig struct {
	// File, relative to the rule's directory, receives the rule's secrets
	// instead of the environment.
	File string `yaml:"file,omitempty"`

	// OnePasswordServiceAccount is hydrated first and exported to the
	// 1Password CLI as OP_SERVICE_ACCOUNT_TOKEN.
	OnePasswordServiceAccount *SecretSpec `yaml:"1password_service_account,omitempty"`
}

// Rule maps environment variable names to secret specs for the commands a
// pattern matches.
type Rule struct {
	Config  *RuleConfig
	Secrets map[string]SecretSpec
}

// UnmarshalYAML splits the "." config entry from the variables.
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.Secrets = make(map[string]SecretSpec, len(raw))
	for key, node := range raw {
		if key == DefaultUser {
			var cfg RuleConfig
			if err := node.Decode(&cfg); err != nil {
				return fmt.Errorf("invalid \".\" entry: %w", err)
			}
			r.Config = &cfg
			continue
		}

		var spec SecretSpec
		if err := node.Decode(&spec); err != nil {
			return fmt.Errorf("invalid secret %s: %w", key, err)
		}
		r.Secrets[key] = spec
	}
	return nil
}

// Select picks the reference of every variable for identity, dropping
// variables the identity has no entry for.
func (r Rule) Select(identity string) map[string]string {
	selected := make(map[string]string, len(r.Secrets))
	for name, spec := range r.Secrets {
		if ref, ok := spec.Select(identity); ok {
			selected[name] = ref
		}
	}
	return selected
}

// ServiceAccount returns the 1Password service account reference for
// identity, if the rule configures one.
func (r Rule) ServiceAccount(identity string) (string, bool) {
	if r.Config == nil || r.Config.OnePasswordServiceAccount == nil {
		return "", false
	}
	return r.Config.OnePasswordServiceAccount.Select(identity)
}
