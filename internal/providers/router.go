package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dserrors "github.com/systmms/lade/internal/errors"
	"github.com/systmms/lade/pkg/provider"
)

// ErrNoProvider is returned when no provider claims a reference.
var ErrNoProvider = errors.New("no provider found")

// Router dispatches references to the first provider that accepts them and
// resolves all providers concurrently. A router serves one hydration.
type Router struct {
	providers []provider.Provider
	opts      Options
}

// NewRouter creates a router over fresh instances of the built-in providers.
func NewRouter(opts Options) *Router {
	opts = opts.withDefaults()
	return &Router{
		providers: NewRegistry().Build(opts),
		opts:      opts,
	}
}

// NewRouterWithProviders creates a router over the given providers, tried in order.
func NewRouterWithProviders(opts Options, providers ...provider.Provider) *Router {
	return &Router{
		providers: providers,
		opts:      opts.withDefaults(),
	}
}

// Add hands ref to the first provider that accepts it.
func (r *Router) Add(ref string) error {
	for _, p := range r.providers {
		if p.Accept(ref) {
			r.opts.Metrics.RecordReference(p.Name())
			r.opts.Logger.Debug("reference %s routed to %s", maskReference(ref), p.Name())
			return nil
		}
	}
	return fmt.Errorf("%w for %s", ErrNoProvider, ref)
}

// Resolve resolves every provider concurrently and merges their hydrations.
// The first provider error is returned as soon as it happens.
func (r *Router) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	tasks := make([]task, 0, len(r.providers))
	for _, p := range r.providers {
		tasks = append(tasks, func(ctx context.Context) (provider.Hydration, error) {
			hydration, err := p.Resolve(ctx, req)
			if err != nil {
				return nil, dserrors.ProviderError(p.Name(), "resolve", err)
			}
			return hydration, nil
		})
	}
	return fanOut(ctx, tasks)
}

// maskReference keeps scheme-qualified references readable and hides
// literals, which are secret values themselves.
func maskReference(ref string) string {
	for _, scheme := range []string{"doppler", "infisical", "op", "vault", "passbolt", "file"} {
		if strings.HasPrefix(ref, scheme+"://") {
			return ref
		}
	}
	return "[REDACTED]"
}
