package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertFileContents verifies that a file exists and holds exactly expected.
//
// Used to check that a file output was written, or that a pre-existing file
// survived a failed write untouched.
func AssertFileContents(t *testing.T, path string, expected string) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file %s", path)
	assert.Equal(t, expected, string(data), "File contents mismatch for %s", path)
}

// AssertNoSecretLeak verifies that none of the secret values appear in output.
//
// Example usage:
//
//	AssertNoSecretLeak(t, logs.GetOutput(), []string{"s3cret", "hunter2"})
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		assert.NotContains(t, output, secret, "Secret value leaked into output")
	}
}

// AssertErrorContains verifies err is non-nil and mentions every substring.
func AssertErrorContains(t *testing.T, err error, substrings ...string) {
	t.Helper()

	require.Error(t, err)
	for _, substr := range substrings {
		assert.True(t, strings.Contains(err.Error(), substr),
			"Expected error to contain %q, got: %v", substr, err)
	}
}
