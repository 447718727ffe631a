package provider

import (
	"fmt"
	"strings"
)

// CLINotFoundError is returned when a backend CLI is missing from PATH.
type CLINotFoundError struct {
	Provider   string // Display name, e.g. "Vault"
	Tool       string // Binary name, e.g. "vault"
	InstallURL string
	Err        error
}

func (e CLINotFoundError) Error() string {
	return fmt.Sprintf("%s CLI not found. Make sure the binary is in your PATH or install it from %s.",
		e.Provider, e.InstallURL)
}

func (e CLINotFoundError) Unwrap() error {
	return e.Err
}

// OutputError is returned when a backend CLI produced output that does not
// match the expected schema. Stderr holds the CLI's diagnostics.
type OutputError struct {
	Provider string
	Stderr   string
	Err      error
}

func (e OutputError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Provider, stderr)
	}
	return fmt.Sprintf("%s error: %v (stderr: %s)", e.Provider, e.Err, stderr)
}

func (e OutputError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a backend answered but one or more requested
// fields are absent. Location names the backend scope that was searched.
type NotFoundError struct {
	Provider string
	Keys     []string
	Location string
}

func (e NotFoundError) Error() string {
	noun := "Variable"
	if len(e.Keys) > 1 {
		noun = "Variables"
	}
	return fmt.Sprintf("%s %s not found in %s %s",
		noun, strings.Join(e.Keys, ", "), e.Provider, e.Location)
}
