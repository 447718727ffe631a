package execenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	dserrors "github.com/systmms/lade/internal/errors"
	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/internal/resolve"
	"github.com/systmms/lade/internal/secure"
)

// Executor runs a command with hydrated environment variables
type Executor struct {
	logger *logging.Logger
}

// New creates a new executor
func New(logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{
		logger: logger,
	}
}

// ExecOptions configures command execution
type ExecOptions struct {
	Command     []string    // Command and arguments; $VAR and ${VAR} are expanded
	Environment *secure.Env // Hydrated variables, override the base environment
	BaseEnv     []string    // Environment the command inherits, os.Environ() when nil
	PrintVars   bool        // Print hydrated variable names with masked values
	WorkingDir  string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs the command and returns its exit code. A non-zero exit is not an
// error; failing to start the command is.
func (e *Executor) Exec(ctx context.Context, options ExecOptions) (int, error) {
	if len(options.Command) == 0 {
		return 1, dserrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after -- (e.g., lade inject -- npm start)",
		}
	}

	base := options.BaseEnv
	if base == nil {
		base = os.Environ()
	}

	hydrated := map[string]string{}
	if options.Environment != nil {
		var err error
		hydrated, err = options.Environment.Reveal()
		if err != nil {
			return 1, dserrors.UserError{
				Message:    "Failed to open secured environment",
				Details:    err.Error(),
				Suggestion: "Try running with --debug for more information",
				Err:        err,
			}
		}
	}

	vars := resolve.EnvironMap(base)
	for k, v := range hydrated {
		vars[k] = v
	}
	args := make([]string, len(options.Command))
	for i, arg := range options.Command {
		args[i] = resolve.Substitute(arg, vars)
	}

	if options.PrintVars {
		e.printEnvironment(hydrated)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = buildEnvironment(vars)
	cmd.Dir = options.WorkingDir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if options.Stdin != nil {
		cmd.Stdin = options.Stdin
	}
	if options.Stdout != nil {
		cmd.Stdout = options.Stdout
	}
	if options.Stderr != nil {
		cmd.Stderr = options.Stderr
	}

	e.logger.Debug("Executing command: %s", args[0])
	e.logger.Debug("Environment variables set: %d", len(hydrated))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				code = 1
			}
			return code, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return 127, dserrors.WrapCommandNotFound(args[0], err)
		}
		return 1, dserrors.CommandError{
			Command:    args[0],
			Message:    err.Error(),
			Suggestion: "Check the command output above for details",
		}
	}

	return 0, nil
}

// buildEnvironment turns vars into a sorted KEY=value slice
func buildEnvironment(vars map[string]string) []string {
	result := make([]string, 0, len(vars))
	for key, value := range vars {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(result)
	return result
}

// printEnvironment lists the hydrated variables with masked values
func (e *Executor) printEnvironment(environment map[string]string) {
	w := e.logger.Writer()
	if len(environment) == 0 {
		fmt.Fprintln(w, "No environment variables hydrated")
		return
	}

	fmt.Fprintf(w, "Hydrated %d environment variables:\n", len(environment))

	keys := make([]string, 0, len(environment))
	for key := range environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(w, "  %s=%s\n", key, maskValue(environment[key]))
	}
}

// maskValue masks a secret value for display
func maskValue(value string) string {
	if len(value) == 0 {
		return "(empty)"
	}

	if len(value) <= 3 {
		return strings.Repeat("*", len(value))
	}

	if len(value) <= 8 {
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	}

	return value[:3] + strings.Repeat("*", 8) + value[len(value)-2:]
}
