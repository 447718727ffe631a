package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/systmms/lade/internal/config"
	dserrors "github.com/systmms/lade/internal/errors"
	"github.com/systmms/lade/internal/metrics"
	"github.com/systmms/lade/internal/resolve"
	"github.com/systmms/lade/internal/shell"
	"github.com/systmms/lade/internal/state"
)

// ExitError makes main exit with Code. Whatever had to be said has already
// been printed.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ReportError prints err to w in user-facing form and returns the process
// exit code for it.
func ReportError(w io.Writer, err error) int {
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(w, "Error: %v\n", dserrors.SimplifyError(err))
	return 1
}

// commandLine joins the words after -- into the command matched against rules
func commandLine(args []string, usage string) (string, error) {
	command := strings.TrimSpace(strings.Join(args, " "))
	if command == "" {
		return "", dserrors.UserError{
			Message:    "No command specified",
			Suggestion: "Use: " + usage,
		}
	}
	return command, nil
}

// loadRules loads the rule cascade unless it already is
func loadRules(cfg *config.Config) error {
	if cfg.Rules != nil {
		return nil
	}
	if cfg.Dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.Dir = dir
	}
	if err := cfg.Load(); err != nil {
		return dserrors.UserError{
			Message:    "Failed to load configuration",
			Details:    err.Error(),
			Suggestion: "Check that every lade.yaml from here to the root is valid",
			Err:        err,
		}
	}
	return nil
}

func stateStore(cfg *config.Config) (*state.Store, error) {
	path := cfg.StatePath
	if path == "" {
		var err error
		if path, err = state.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return state.NewStore(path), nil
}

// identity returns the user per-user secrets are selected for
func identity(cfg *config.Config) (string, error) {
	store, err := stateStore(cfg)
	if err != nil {
		return "", err
	}
	st, err := store.Load()
	if err != nil {
		return "", dserrors.UserError{
			Message:    "Failed to read global state",
			Details:    err.Error(),
			Suggestion: fmt.Sprintf("Fix or delete %s", store.Path()),
			Err:        err,
		}
	}
	return state.Identity(st, os.Getenv), nil
}

func detectShell() (shell.Shell, error) {
	sh, err := shell.Detect(os.Getenv)
	if err != nil {
		return "", dserrors.UserError{
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Set %s to one of bash, zsh, fish or sh", shell.Env),
			Err:        err,
		}
	}
	return sh, nil
}

// hydration is a resolver bound to the runtime configuration and the
// metrics it records.
type hydration struct {
	cfg      *config.Config
	resolver *resolve.Resolver
	registry *prometheus.Registry
}

func newHydration(cfg *config.Config) (*hydration, error) {
	user, err := identity(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("Selecting secrets for user %q", user)

	home, err := homedir.Dir()
	if err != nil {
		cfg.Logger.Debug("No home directory: %v", err)
	}

	registry := prometheus.NewRegistry()
	resolver := resolve.New(resolve.Options{
		Dir:      cfg.Dir,
		Identity: user,
		Env:      resolve.EnvironMap(os.Environ()),
		Home:     home,
		Logger:   cfg.Logger,
		Metrics:  metrics.NewBackendMetrics(registry),
	})
	return &hydration{cfg: cfg, resolver: resolver, registry: registry}, nil
}

// flush writes the recorded metrics when --metrics-file is set
func (h *hydration) flush() {
	if h.cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(h.cfg.MetricsFile, h.registry); err != nil {
		h.cfg.Logger.Warn("Failed to write metrics to %s: %v", h.cfg.MetricsFile, err)
	}
}
