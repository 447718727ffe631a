package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	File       string
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
	Err        error
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.File != "" {
		msg += fmt.Sprintf(" in %s", e.File)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" at '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

func (e ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents a command execution error
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError enhances provider-specific errors with context. The wrapped
// error text is kept in Details so backend diagnostics stay visible.
func ProviderError(provider string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", provider, operation),
		Details:    err.Error(),
		Suggestion: getProviderSuggestion(provider, err),
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	errStr := err.Error()

	switch provider {
	case "doppler":
		if strings.Contains(errStr, "not found in Doppler") {
			return "List the variables of that config with 'doppler secrets --project <project> --config <config>'"
		}
		if strings.Contains(errStr, "Unable to authenticate") || strings.Contains(errStr, "login") {
			return "Run 'doppler login' for the API host in the reference"
		}

	case "infisical":
		if strings.Contains(errStr, "Login expired") {
			return "Run 'infisical login' against the instance in the reference"
		}
		if strings.Contains(errStr, "not accessible") {
			return "Check that the logged-in account is a member of the project"
		}
		if strings.Contains(errStr, "not found in Infisical") {
			return "Verify the secret path; nested paths go between the environment and the variable name"
		}

	case "vault":
		if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "missing client token") {
			return "Run 'vault login -address=https://<host>' or export VAULT_TOKEN"
		}
		if strings.Contains(errStr, "not found in Vault") {
			return "Check the field name with 'vault kv get -mount=<mount> <key>'"
		}

	case "passbolt":
		if strings.Contains(errStr, "not found in Passbolt") {
			return "Check the resource fields with 'passbolt get resource --id <id> --json'"
		}
		if strings.Contains(errStr, "configure") {
			return "Run 'passbolt configure' for the server in the reference"
		}

	case "1password", "onepassword":
		if strings.Contains(errStr, "not signed in") || strings.Contains(errStr, "no accounts configured") {
			return "Run 'op signin --account <account>' or set OP_SERVICE_ACCOUNT_TOKEN"
		}
		if strings.Contains(errStr, "session expired") {
			return "Your 1Password session has expired. Run 'op signin' again"
		}
		if strings.Contains(errStr, "expected") && strings.Contains(errStr, "values") {
			return "A secret value may contain the batch delimiter; resolve that field on its own"
		}

	case "file":
		if strings.Contains(errStr, "no such file") {
			return "Check the path of the file:// reference; relative paths start from the working directory"
		}
		if strings.Contains(errStr, "no query result") {
			return "Check the ?query= expression, e.g. .section.key or .list[0]"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "CLI not found") {
		return "Install the CLI and make sure it is on your PATH"
	}
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and the host in the reference"
	}

	return ""
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"doppler":   "Install the Doppler CLI from https://docs.doppler.com/docs/install-cli",
		"infisical": "Install the Infisical CLI from https://infisical.com/docs/cli/overview",
		"op":        "Install the 1Password CLI from https://developer.1password.com/docs/cli/get-started/",
		"vault":     "Install the Vault CLI from https://developer.hashicorp.com/vault/docs/commands",
		"passbolt":  "Install the Passbolt CLI from https://github.com/passbolt/go-passbolt-cli",
		"docker":    "Install Docker from https://docker.com/",
		"npm":       "Install Node.js from https://nodejs.org/",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	return CommandError{
		Command:    command,
		Message:    "command not found",
		Suggestion: suggestion,
	}
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	var configErr ConfigError
	var commandErr CommandError
	if errors.As(err, &userErr) || errors.As(err, &configErr) || errors.As(err, &commandErr) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format: " + strings.TrimPrefix(errStr, "yaml: "),
			Suggestion: "Check for indentation errors and missing quotes",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	return err
}
