package providers

import (
	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/internal/metrics"
	pkgexec "github.com/systmms/lade/pkg/exec"
	"github.com/systmms/lade/pkg/provider"
)

// Options carries the collaborators shared by every provider of a hydration.
type Options struct {
	Executor pkgexec.CommandExecutor
	Logger   *logging.Logger
	Metrics  *metrics.BackendMetrics

	// HomeDir expands ~/ and $HOME/ in file:// references. When empty the
	// user's home directory is looked up.
	HomeDir string
}

func (o Options) withDefaults() Options {
	if o.Executor == nil {
		o.Executor = pkgexec.DefaultExecutor()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// ProviderFactory creates a fresh provider for one hydration
type ProviderFactory func(opts Options) provider.Provider

// Registry holds provider factories in routing priority order
type Registry struct {
	names     []string
	factories map[string]ProviderFactory
}

// NewRegistry creates a registry with the built-in providers. Raw comes last
// because it accepts every reference.
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]ProviderFactory),
	}

	registry.RegisterFactory("doppler", func(o Options) provider.Provider { return NewDopplerProvider(o) })
	registry.RegisterFactory("infisical", func(o Options) provider.Provider { return NewInfisicalProvider(o) })
	registry.RegisterFactory("onepassword", func(o Options) provider.Provider { return NewOnePasswordProvider(o) })
	registry.RegisterFactory("vault", func(o Options) provider.Provider { return NewVaultProvider(o) })
	registry.RegisterFactory("passbolt", func(o Options) provider.Provider { return NewPassboltProvider(o) })
	registry.RegisterFactory("file", func(o Options) provider.Provider { return NewFileProvider(o) })
	registry.RegisterFactory("raw", func(o Options) provider.Provider { return NewRawProvider() })

	return registry
}

// RegisterFactory appends a provider factory, or replaces an existing one in place
func (r *Registry) RegisterFactory(name string, factory ProviderFactory) {
	if _, exists := r.factories[name]; !exists {
		r.names = append(r.names, name)
	}
	r.factories[name] = factory
}

// Names returns the provider names in routing order
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Build instantiates one provider per factory, in routing order
func (r *Registry) Build(opts Options) []provider.Provider {
	opts = opts.withDefaults()
	out := make([]provider.Provider, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.factories[name](opts))
	}
	return out
}
