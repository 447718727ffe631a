// Package provider defines the core interfaces and types for secret backends in lade.
//
// A provider claims secret references by URI scheme and later resolves every
// claimed reference to plaintext in one batch. lade never stores secrets itself:
// providers shell out to the backend's own CLI (doppler, infisical, op, vault,
// passbolt) or read a local document, and the result only lives in memory until
// it is printed for the shell, written to a file output, or handed to a child
// process.
//
// # Architecture Overview
//
// The provider package sits between the hydration pipeline and the concrete
// backend implementations:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                    CLI Commands                             │
//	│              (cmd/lade/commands/)                           │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                Hydration Pipeline                           │
//	│              (internal/resolve/)                            │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                Provider Interface                           │
//	│                 (pkg/provider/)                ◄────────────┤
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│              Provider Implementations + Router              │
//	│              (internal/providers/)                          │
//	│                                                             │
//	│  ┌─────────┐ ┌───────────┐ ┌──────────┐ ┌───────┐           │
//	│  │ Doppler │ │ Infisical │ │1Password │ │ Vault │  ...      │
//	│  └─────────┘ └───────────┘ └──────────┘ └───────┘           │
//	└─────────────────────────────────────────────────────────────┘
//
// # Provider Interface
//
// The Provider interface has three methods:
//
//   - Name(): stable lowercase identifier used in logs and metrics
//   - Accept(): claim a reference if the provider recognizes its scheme
//   - Resolve(): fetch every claimed reference and return a Hydration
//
// A provider instance is single use. The router creates a fresh set of
// providers for each hydration, feeds them references through Accept, then
// calls Resolve once. Nothing is cached across hydrations.
//
// # Hydration Contract
//
// Resolve returns a Hydration keyed by the original reference string exactly
// as it was passed to Accept. Two spellings of the same backend location are
// fetched once but both keys are present in the result. Every accepted
// reference receives exactly one value or Resolve returns an error; there is
// no partial success.
//
// # Error Handling
//
// The package defines the error types shared by every backend:
//   - CLINotFoundError: the backend binary is not on PATH
//   - OutputError: the backend answered with something that does not parse
//   - NotFoundError: the backend answered but the requested field is absent
//
// Callers match them with errors.As.
//
// # Threading and Concurrency
//
// Accept is called from a single goroutine. Resolve may fan out internally
// (one goroutine per backend group) but never mutates state shared with
// other providers, so separate providers can resolve concurrently without
// locking.
package provider
