// Package shell renders hydrated variables as commands for the user's shell.
package shell

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Env names the variable that forces the shell, by name or path.
const Env = "LADE_SHELL"

// Shell is a supported interactive shell.
type Shell string

const (
	Bash Shell = "bash"
	Zsh  Shell = "zsh"
	Fish Shell = "fish"
	Sh   Shell = "sh"
)

// Parse returns the shell called name.
func Parse(name string) (Shell, error) {
	switch s := Shell(name); s {
	case Bash, Zsh, Fish, Sh:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported shell: %s", name)
	}
}

// Detect picks the shell from LADE_SHELL, then from SHELL. Both accept a
// name or a path to the binary.
func Detect(getenv func(string) string) (Shell, error) {
	value := getenv(Env)
	if value == "" {
		value = getenv("SHELL")
	}
	if value == "" {
		return "", fmt.Errorf("cannot detect shell: set %s or SHELL", Env)
	}
	return Parse(binaryName(value))
}

func binaryName(path string) string {
	name := strings.ToLower(strings.TrimSpace(filepath.Base(path)))
	return strings.TrimSuffix(name, ".exe")
}

// Set renders commands exporting env, sorted by name and joined by ";".
func (s Shell) Set(env map[string]string) string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	cmds := make([]string, 0, len(names))
	for _, name := range names {
		switch s {
		case Fish:
			cmds = append(cmds, fmt.Sprintf("set --global --export %s %s", name, fishQuote(env[name])))
		default:
			cmds = append(cmds, fmt.Sprintf("export %s=%s", name, posixQuote(env[name])))
		}
	}
	return strings.Join(cmds, ";")
}

// Unset renders commands removing names, in the given order.
func (s Shell) Unset(names []string) string {
	cmds := make([]string, 0, len(names))
	for _, name := range names {
		switch s {
		case Fish:
			cmds = append(cmds, "set --global --erase "+name)
		default:
			cmds = append(cmds, "unset -v "+name)
		}
	}
	return strings.Join(cmds, ";")
}

// posixQuote single-quotes v; embedded quotes close, escape and reopen.
func posixQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// fishQuote single-quotes v; fish only treats \' and \\ specially there.
func fishQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}
