package providers

import (
	"context"
	"strings"

	"github.com/systmms/lade/pkg/provider"
)

// RawProvider accepts any reference and resolves it to itself. A single
// leading "!" is stripped, so "!doppler://..." is passed through literally.
type RawProvider struct {
	refs map[string]struct{}
}

// NewRawProvider creates a new raw provider.
func NewRawProvider() *RawProvider {
	return &RawProvider{refs: make(map[string]struct{})}
}

// Name returns the provider name.
func (p *RawProvider) Name() string {
	return "raw"
}

// Accept claims every reference.
func (p *RawProvider) Accept(ref string) bool {
	p.refs[ref] = struct{}{}
	return true
}

// Resolve maps every reference to its literal value.
func (p *RawProvider) Resolve(_ context.Context, _ provider.Request) (provider.Hydration, error) {
	hydration := make(provider.Hydration, len(p.refs))
	for ref := range p.refs {
		hydration[ref] = strings.TrimPrefix(ref, "!")
	}
	return hydration, nil
}
