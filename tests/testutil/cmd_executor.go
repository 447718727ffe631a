// Package testutil provides testing utilities for lade.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	pkgexec "github.com/systmms/lade/pkg/exec"
)

// MockCommandExecutor provides a configurable mock for testing CLI-based providers.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args)
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool

	// OnExecute, when set, runs before the response is returned. It sees the
	// command while it is "running", e.g. to inspect files in its Dir.
	OnExecute func(cmd pkgexec.Command)
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout   []byte
	Stderr   []byte
	Err      error
	ExitCode int // Used to simulate exit codes when Err is nil
}

// RecordedCall stores information about a command execution.
type RecordedCall struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
	Stdin   []byte
	Context context.Context
}

// Line returns the recorded command line.
func (c RecordedCall) Line() string {
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, cmd pkgexec.Command) ([]byte, []byte, error) {
	m.mu.Lock()
	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command: cmd.Name,
		Args:    cmd.Args,
		Env:     cmd.Env,
		Dir:     cmd.Dir,
		Stdin:   cmd.Stdin,
		Context: ctx,
	})
	hook := m.OnExecute
	resp, err := m.lookup(cmd.String())
	m.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	if err != nil {
		return nil, nil, err
	}
	return resp.Stdout, resp.Stderr, resp.Err
}

// lookup must be called with m.mu held.
func (m *MockCommandExecutor) lookup(key string) (MockResponse, error) {
	// Try exact match first
	if resp, ok := m.Responses[key]; ok {
		return resp, nil
	}

	// The longest matching prefix wins so specific patterns beat generic ones
	best := -1
	var bestResp MockResponse
	for pattern, resp := range m.Responses {
		if m.matchesPattern(key, pattern) && len(pattern) > best {
			best = len(pattern)
			bestResp = resp
		}
	}
	if best >= 0 {
		return bestResp, nil
	}

	// Use default response if available
	if m.DefaultResponse != nil {
		return *m.DefaultResponse, nil
	}

	// Strict mode fails on unknown commands
	if m.StrictMode {
		return MockResponse{}, fmt.Errorf("mock: no response configured for command: %s", key)
	}

	// Non-strict mode returns empty success
	return MockResponse{Stdout: []byte{}, Stderr: []byte{}}, nil
}

// matchesPattern checks if the command key matches a pattern.
// Supports simple prefix matching for flexible response configuration.
func (m *MockCommandExecutor) matchesPattern(key, pattern string) bool {
	// Support wildcard patterns with "*"
	if idx := strings.Index(pattern, "*"); idx >= 0 {
		return strings.HasPrefix(key, pattern[:idx])
	}

	// Check if key starts with pattern (allows additional args)
	return strings.HasPrefix(key, pattern)
}

// AddResponse registers a mock response for a specific command pattern.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddJSONResponse is a convenience method to add a JSON response.
func (m *MockCommandExecutor) AddJSONResponse(commandPattern string, jsonData string) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte(jsonData),
		Stderr: []byte{},
	})
}

// AddErrorResponse adds an error response for a command pattern. Stdout is
// empty, so providers report it as unparsable output carrying errMsg.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, errMsg string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout:   []byte{},
		Stderr:   []byte(errMsg),
		Err:      fmt.Errorf("exit status %d", exitCode),
		ExitCode: exitCode,
	})
}

// AddMissingBinary makes every call to tool fail as if it were not on PATH.
func (m *MockCommandExecutor) AddMissingBinary(tool string) {
	m.AddResponse(tool, MockResponse{
		Err: &exec.Error{Name: tool, Err: exec.ErrNotFound},
	})
}

// GetCalls returns all recorded calls matching the given command name.
func (m *MockCommandExecutor) GetCalls(commandName string) []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []RecordedCall
	for _, call := range m.RecordedCalls {
		if call.Command == commandName {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of times Execute was called.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// Reset clears all recorded calls and responses.
func (m *MockCommandExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = make(map[string]MockResponse)
	m.RecordedCalls = make([]RecordedCall, 0)
	m.DefaultResponse = nil
}

// AssertCalled verifies that a specific command was called at least once.
func (m *MockCommandExecutor) AssertCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) == 0 {
		t.Error("expected command", commandName, "to be called, but it was not")
		return false
	}
	return true
}

// AssertNotCalled verifies that a specific command was never called.
func (m *MockCommandExecutor) AssertNotCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) > 0 {
		t.Error("expected command", commandName, "to not be called, but it was called", len(calls), "times")
		return false
	}
	return true
}

// AssertCallCount verifies the exact number of times a command was called.
func (m *MockCommandExecutor) AssertCallCount(t interface{ Error(args ...interface{}) }, commandName string, expected int) bool {
	calls := m.GetCalls(commandName)
	if len(calls) != expected {
		t.Error("expected command", commandName, "to be called", expected, "times, but was called", len(calls), "times")
		return false
	}
	return true
}

// DopplerMockResponses provides pre-configured responses for Doppler CLI.
type DopplerMockResponses struct{}

// Secrets returns a `doppler secrets --json` response holding the given keys.
func (DopplerMockResponses) Secrets(kv map[string]string) MockResponse {
	parts := make([]string, 0, len(kv))
	for k, v := range kv {
		parts = append(parts, fmt.Sprintf(`%q: {"computed": %q, "raw": %q, "note": ""}`, k, v, v))
	}
	return MockResponse{Stdout: []byte("{" + strings.Join(parts, ",") + "}")}
}

// InfisicalMockResponses provides pre-configured responses for Infisical CLI.
type InfisicalMockResponses struct{}

// Export returns an `infisical export --format json` response.
func (InfisicalMockResponses) Export(path string, kv map[string]string) MockResponse {
	parts := make([]string, 0, len(kv))
	for k, v := range kv {
		parts = append(parts, fmt.Sprintf(`{"key": %q, "value": %q, "secretPath": %q}`, k, v, path))
	}
	return MockResponse{Stdout: []byte("[" + strings.Join(parts, ",") + "]")}
}

// LoginExpired returns the stderr Infisical prints for an expired session.
func (InfisicalMockResponses) LoginExpired() MockResponse {
	return MockResponse{
		Stderr: []byte("error: Your login session has expired, please run [infisical login]: login expired"),
		Err:    fmt.Errorf("exit status 1"),
	}
}

// VaultMockResponses provides pre-configured responses for Vault CLI.
type VaultMockResponses struct{}

// KVGet returns a `vault kv get -format=json` response for a KV v2 secret.
func (VaultMockResponses) KVGet(data string) MockResponse {
	return MockResponse{
		Stdout: []byte(fmt.Sprintf(`{
			"request_id": "b8b3e7f5-0f0e-4f2c-9d0a-5b6c1b1e9c11",
			"lease_duration": 0,
			"renewable": false,
			"data": {
				"data": %s,
				"metadata": {"version": 3, "destroyed": false}
			}
		}`, data)),
	}
}

// PassboltMockResponses provides pre-configured responses for Passbolt CLI.
type PassboltMockResponses struct{}

// Resource returns a `passbolt get resource --json` response.
func (PassboltMockResponses) Resource(name, username, password string) MockResponse {
	return MockResponse{
		Stdout: []byte(fmt.Sprintf(`{
			"folder_parent_id": "",
			"name": %q,
			"username": %q,
			"uri": "https://example.com",
			"password": %q,
			"description": ""
		}`, name, username, password)),
	}
}

// OnePasswordMockResponses provides pre-configured responses for 1Password CLI.
type OnePasswordMockResponses struct{}

// Inject returns an `op inject` response made of values joined by delimiter.
func (OnePasswordMockResponses) Inject(delimiter string, values ...string) MockResponse {
	return MockResponse{Stdout: []byte(strings.Join(values, delimiter))}
}
