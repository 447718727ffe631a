package resolve

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/systmms/lade/internal/config"
	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/internal/metrics"
	"github.com/systmms/lade/internal/providers"
	pkgexec "github.com/systmms/lade/pkg/exec"
	"github.com/systmms/lade/pkg/provider"
)

// ServiceAccountEnv carries the bootstrap token to the 1Password CLI.
const ServiceAccountEnv = "OP_SERVICE_ACCOUNT_TOKEN"

// Options holds the ambient state of a hydration. Nothing is read from the
// process environment behind the caller's back.
type Options struct {
	// Dir is the working directory, used when a rule has no directory.
	Dir string

	// Identity selects per-user secrets. Empty means unknown.
	Identity string

	// Env is the ambient environment bootstrap tokens are interpolated against.
	Env map[string]string

	// Home expands ~/ and $HOME/ in file references.
	Home string

	Executor pkgexec.CommandExecutor
	Logger   *logging.Logger
	Metrics  *metrics.BackendMetrics
}

// Outputs maps an output (config.EnvOutput or a file path) to the hydrated
// variables written there.
type Outputs map[string]map[string]string

// Resolver turns matched rules into hydrated variables
type Resolver struct {
	opts Options
}

// New creates a resolver
func New(opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Resolver{opts: opts}
}

func (r *Resolver) providerOptions() providers.Options {
	return providers.Options{
		Executor: r.opts.Executor,
		Logger:   r.opts.Logger,
		Metrics:  r.opts.Metrics,
		HomeDir:  r.opts.Home,
	}
}

// Hydrate resolves env, a map of variable name to reference, through a fresh
// router. extraEnv is passed to every backend CLI.
func (r *Resolver) Hydrate(ctx context.Context, dir string, env, extraEnv map[string]string) (map[string]string, error) {
	if dir == "" {
		dir = r.opts.Dir
	}

	refs := make([]string, 0, len(env))
	seen := map[string]bool{}
	for _, ref := range env {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)

	router := providers.NewRouter(r.providerOptions())
	for _, ref := range refs {
		if err := router.Add(ref); err != nil {
			return nil, err
		}
	}

	r.opts.Logger.Debug("Hydrating %d variables (%d references) in %s", len(env), len(refs), dir)
	hydration, err := router.Resolve(ctx, provider.Request{Dir: dir, Env: extraEnv})
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(env))
	for name, ref := range env {
		value, ok := hydration[ref]
		if !ok {
			return nil, fmt.Errorf("no value resolved for %s", name)
		}
		values[name] = value
	}
	return values, nil
}

// HydrateOne resolves a single reference.
func (r *Resolver) HydrateOne(ctx context.Context, dir, ref string, extraEnv map[string]string) (string, error) {
	const key = "value"
	values, err := r.Hydrate(ctx, dir, map[string]string{key: ref}, extraEnv)
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// HydrateRule hydrates the variables m selects for the configured identity.
// A 1Password service account, when configured, is hydrated first and its
// token handed to the main pass.
func (r *Resolver) HydrateRule(ctx context.Context, m config.Match) (string, map[string]string, error) {
	selected := m.Rule.Select(r.opts.Identity)

	extraEnv := map[string]string{}
	if ref, ok := m.Rule.ServiceAccount(r.opts.Identity); ok {
		r.opts.Logger.Debug("Bootstrapping 1Password service account for %s", m.Pattern)
		token, err := r.HydrateOne(ctx, m.Dir, ref, nil)
		if err != nil {
			return "", nil, fmt.Errorf("failed to hydrate 1password_service_account: %w", err)
		}
		extraEnv[ServiceAccountEnv] = Substitute(token, r.opts.Env)
	}

	values, err := r.Hydrate(ctx, m.Dir, selected, extraEnv)
	if err != nil {
		return "", nil, err
	}
	return m.Output(), values, nil
}

type ruleResult struct {
	output string
	values map[string]string
}

// Collect hydrates every matched rule concurrently and merges the results per
// output in rule order, so closer rules win. It fails with the first error.
func (r *Resolver) Collect(ctx context.Context, matches []config.Match) (outputs Outputs, err error) {
	defer func() { r.opts.Metrics.RecordHydration(err) }()

	results := make([]ruleResult, len(matches))
	failed := make(chan error, 1)

	var g errgroup.Group
	for i, m := range matches {
		g.Go(func() error {
			output, values, err := r.HydrateRule(ctx, m)
			if err != nil {
				select {
				case failed <- err:
				default:
				}
				return err
			}
			results[i] = ruleResult{output: output, values: values}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err = <-failed:
		return nil, err
	case err = <-done:
		if err != nil {
			return nil, err
		}
	}

	outputs = Outputs{}
	for _, res := range results {
		if outputs[res.output] == nil {
			outputs[res.output] = map[string]string{}
		}
		for k, v := range res.values {
			outputs[res.output][k] = v
		}
	}
	return outputs, nil
}

// CollectCommand hydrates the rules of rules that match command.
func (r *Resolver) CollectCommand(ctx context.Context, rules *config.RuleSet, command string) (Outputs, error) {
	return r.Collect(ctx, rules.Collect(command))
}
