package provider

import (
	"context"
	"sort"
)

// Provider defines the interface that all secret backends must implement.
//
// Example usage:
//
//	p := providers.NewVaultProvider(executor, logger)
//	if p.Accept("vault://vault.example.com/secret/app/password") {
//	    hydration, err := p.Resolve(ctx, provider.Request{Dir: cwd})
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(len(hydration))
//	}
type Provider interface {
	// Name returns the provider's unique identifier, e.g. "doppler" or "raw".
	Name() string

	// Accept claims ref if the provider recognizes it and reports whether it did.
	//
	// A claimed reference must appear as a key of the Hydration returned by
	// Resolve. Accept never performs I/O.
	Accept(ref string) bool

	// Resolve fetches every claimed reference.
	//
	// Implementations group references so that one backend call serves every
	// reference sharing a location (project, config, mount, resource). Groups
	// run concurrently and the first failing group fails the whole call.
	Resolve(ctx context.Context, req Request) (Hydration, error)
}

// Request carries the ambient state a provider needs to resolve references.
type Request struct {
	// Dir is the working directory. Relative file references are joined to it.
	Dir string

	// Env overrides the process environment for backend CLIs. A PATH entry
	// also controls where the CLI binary is looked up.
	Env map[string]string
}

// Hydration maps original reference strings to resolved plaintext values.
type Hydration map[string]string

// Merge copies every entry of other into h, overwriting existing keys.
func (h Hydration) Merge(other Hydration) {
	for k, v := range other {
		h[k] = v
	}
}

// Keys returns the references of h in sorted order.
func (h Hydration) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
