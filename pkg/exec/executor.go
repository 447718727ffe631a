// Package exec provides abstractions for command execution.
// This package enables testable code by allowing CLI commands to be mocked.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Command describes one invocation of an external CLI.
type Command struct {
	Name  string
	Args  []string
	Env   map[string]string // Overrides applied on top of os.Environ()
	Dir   string            // Working directory, empty for the current one
	Stdin []byte            // Written to the process input when non-nil
}

// String renders the command line for logs. It never includes Env or Stdin.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// CommandExecutor defines an interface for executing shell commands.
// This abstraction allows for mocking CLI tool behavior in tests.
type CommandExecutor interface {
	// Execute runs a command with the given context.
	// Returns stdout, stderr, and any error that occurred.
	// A binary missing from PATH yields an error matching exec.ErrNotFound.
	Execute(ctx context.Context, cmd Command) (stdout []byte, stderr []byte, err error)
}

// RealCommandExecutor executes actual shell commands using os/exec.
// This is the production implementation.
type RealCommandExecutor struct{}

// Execute runs an actual shell command.
func (r *RealCommandExecutor) Execute(ctx context.Context, c Command) ([]byte, []byte, error) {
	path, err := LookPath(c.Name, c.Env)
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Env = MergeEnv(c.Env)
	cmd.Dir = c.Dir
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultExecutor returns the standard production executor.
// This is used as the default when no executor is injected.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}

// MergeEnv returns os.Environ() with overrides applied, sorted by key.
func MergeEnv(overrides map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// LookPath searches for name like exec.LookPath, but honours a PATH entry in
// overrides instead of the process PATH.
func LookPath(name string, overrides map[string]string) (string, error) {
	pathEnv, ok := overrides["PATH"]
	if !ok {
		return exec.LookPath(name)
	}

	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		if isExecutable(name) {
			return name, nil
		}
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		for _, candidate := range candidates(filepath.Join(dir, name), overrides) {
			if isExecutable(candidate) {
				return candidate, nil
			}
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func candidates(path string, overrides map[string]string) []string {
	if runtime.GOOS != "windows" {
		return []string{path}
	}
	exts, ok := overrides["PATHEXT"]
	if !ok {
		exts = os.Getenv("PATHEXT")
	}
	if exts == "" {
		exts = ".com;.exe;.bat;.cmd"
	}
	out := []string{path}
	for _, ext := range filepath.SplitList(exts) {
		out = append(out, path+strings.ToLower(ext))
	}
	return out
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
