package logging_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/lade/internal/logging"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	logger.Info("info %s", "message")
	logger.Warn("warn message")
	logger.Error("error message")
	logger.Debug("debug message")

	assert.Equal(t, "✓ info message\n⚠ warn message\n✗ error message\n[DEBUG] debug message\n", buf.String())
}

func TestLoggerDebugDisabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())
	assert.False(t, logger.DebugEnabled())
}

func TestLoggerColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logging.NewWithWriter(&buf, false, false).Error("boom")

	assert.Equal(t, "\033[31m✗\033[0m boom\n", buf.String())
}

func TestSecretRedactionAcrossLevels(t *testing.T) {
	t.Parallel()

	secretValue := "multi-level-secret-abc"
	levels := []struct {
		name  string
		logFn func(*logging.Logger, string, ...interface{})
	}{
		{"info", (*logging.Logger).Info},
		{"warn", (*logging.Logger).Warn},
		{"error", (*logging.Logger).Error},
		{"debug", (*logging.Logger).Debug},
	}

	for _, tt := range levels {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := logging.NewWithWriter(&buf, true, true)
			tt.logFn(logger, "value=%s goValue=%#v", logging.Secret(secretValue), logging.Secret(secretValue))

			assert.Equal(t, 2, strings.Count(buf.String(), "[REDACTED]"))
			assert.NotContains(t, buf.String(), secretValue)
		})
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "The password is secret123",
			secrets:  []string{"secret123"},
			expected: "The password is [REDACTED]",
		},
		{
			name:     "multiple secrets redacted",
			input:    "User admin with password secret123 and API key abc123",
			secrets:  []string{"admin", "secret123", "abc123"},
			expected: "User [REDACTED] with password [REDACTED] and API key [REDACTED]",
		},
		{
			name:     "empty secret ignored",
			input:    "This has no secrets",
			secrets:  []string{""},
			expected: "This has no secrets",
		},
		{
			name:     "short secret ignored",
			input:    "Short secret: ab",
			secrets:  []string{"ab"},
			expected: "Short secret: ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, logging.Redact(tt.input, tt.secrets))
		})
	}
}

func TestRedactMap(t *testing.T) {
	t.Parallel()

	redacted := logging.RedactMap(map[string]string{"DB_PASS": "hunter22"})
	out := fmt.Sprintf("%v", redacted)

	assert.Contains(t, out, "DB_PASS")
	assert.NotContains(t, out, "hunter22")
}
