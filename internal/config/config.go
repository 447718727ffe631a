package config

import (
	"strings"

	dserrors "github.com/systmms/lade/internal/errors"
	"github.com/systmms/lade/internal/logging"
)

// Config holds the runtime configuration
type Config struct {
	Dir            string
	Logger         *logging.Logger
	Debug          bool
	NonInteractive bool
	StatePath      string
	MetricsFile    string
	Rules          *RuleSet
}

// Load discovers and parses the rule cascade for c.Dir
func (c *Config) Load() error {
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}

	files, err := Discover(c.Dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		c.Logger.Debug("No rule file found from %s to the root", c.Dir)
	} else {
		c.Logger.Debug("Rule files: %s", strings.Join(files, ", "))
	}

	rules, err := LoadFiles(files)
	if err != nil {
		return err
	}

	c.Rules = rules
	return nil
}

// Collect returns the rules matching command
func (c *Config) Collect(command string) ([]Match, error) {
	if c.Rules == nil {
		return nil, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	matches := c.Rules.Collect(command)
	if c.Logger != nil {
		c.Logger.Debug("%d of %d rules match the command", len(matches), c.Rules.Len())
	}
	return matches, nil
}
