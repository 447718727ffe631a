package providers

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/pkg/provider"
)

const passboltInstallURL = "https://github.com/passbolt/go-passbolt-cli"

// PassboltProvider resolves passbolt://host/resourceId/FIELD references with
// one `passbolt get resource` per (host, resource).
type PassboltProvider struct {
	backend backend
	claims  claims
}

type passboltGroup struct {
	host     string
	resource string
}

// NewPassboltProvider creates a new Passbolt provider.
func NewPassboltProvider(opts Options) *PassboltProvider {
	return &PassboltProvider{
		backend: backend{
			name:       "Passbolt",
			metric:     "passbolt",
			tool:       "passbolt",
			installURL: passboltInstallURL,
			opts:       opts.withDefaults(),
		},
		claims: newClaims(),
	}
}

// Name returns the provider name.
func (p *PassboltProvider) Name() string {
	return "passbolt"
}

// Accept claims passbolt:// references.
func (p *PassboltProvider) Accept(ref string) bool {
	u, ok := parseReference(ref, "passbolt")
	if !ok {
		return false
	}
	p.claims.add(u, ref)
	return true
}

// Resolve fetches each resource once and picks the claimed fields.
func (p *PassboltProvider) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	if p.claims.empty() {
		return provider.Hydration{}, nil
	}

	groups, err := groupBy(p.claims, func(u *url.URL) (passboltGroup, error) {
		segs, err := requireSegments(u, 2, "passbolt://host/resourceId/FIELD")
		if err != nil {
			return passboltGroup{}, err
		}
		// The server address never carries a port.
		return passboltGroup{host: u.Hostname(), resource: segs[0]}, nil
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]task, 0, len(groups))
	for group, members := range groups {
		tasks = append(tasks, func(ctx context.Context) (provider.Hydration, error) {
			return p.fetch(ctx, req, group, members)
		})
	}
	return fanOut(ctx, tasks)
}

func (p *PassboltProvider) fetch(ctx context.Context, req provider.Request, group passboltGroup, members []claim) (provider.Hydration, error) {
	out, err := p.backend.run(ctx, req, req.Dir, nil,
		"get", "resource",
		"--serverAddress=https://"+group.host,
		"--id="+group.resource,
		"--json",
	)
	if err != nil {
		return nil, err
	}

	var resource map[string]any
	if err := p.backend.decode(out, &resource); err != nil {
		return nil, err
	}

	hydration := provider.Hydration{}
	var missing []string
	for _, m := range members {
		field := pathSegments(m.url)[1]
		value, ok := resource[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		for _, ref := range m.refs {
			hydration[ref] = stringify(value)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, provider.NotFoundError{
			Provider: "Passbolt",
			Keys:     missing,
			Location: fmt.Sprintf("resource %s", group.resource),
		}
	}

	p.backend.opts.Logger.Debug("passbolt hydration: %v", logging.RedactMap(hydration))
	return hydration, nil
}
