package providers

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/pkg/provider"
)

const dopplerInstallURL = "https://docs.doppler.com/docs/install-cli"

// DopplerProvider resolves doppler://host[:port]/project/config/NAME references
// with one `doppler secrets` download per (host, project, config).
type DopplerProvider struct {
	backend backend
	claims  claims
}

// dopplerSecret is one entry of `doppler secrets --json`.
type dopplerSecret struct {
	Computed string `json:"computed"`
}

type dopplerGroup struct {
	host    string
	project string
	config  string
}

// NewDopplerProvider creates a new Doppler provider.
func NewDopplerProvider(opts Options) *DopplerProvider {
	return &DopplerProvider{
		backend: backend{
			name:       "Doppler",
			metric:     "doppler",
			tool:       "doppler",
			installURL: dopplerInstallURL,
			opts:       opts.withDefaults(),
		},
		claims: newClaims(),
	}
}

// Name returns the provider name.
func (p *DopplerProvider) Name() string {
	return "doppler"
}

// Accept claims doppler:// references.
func (p *DopplerProvider) Accept(ref string) bool {
	u, ok := parseReference(ref, "doppler")
	if !ok {
		return false
	}
	p.claims.add(u, ref)
	return true
}

// Resolve downloads each (host, project, config) once and picks the claimed names.
func (p *DopplerProvider) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	if p.claims.empty() {
		return provider.Hydration{}, nil
	}

	groups, err := groupBy(p.claims, func(u *url.URL) (dopplerGroup, error) {
		segs, err := requireSegments(u, 3, "doppler://host/project/config/NAME")
		if err != nil {
			return dopplerGroup{}, err
		}
		return dopplerGroup{host: u.Host, project: segs[0], config: segs[1]}, nil
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

func (p *DopplerProvider) fetch(ctx context.Context, req provider.Request, group dopplerGroup, members []claim) (provider.Hydration, error) {
	out, err := p.backend.run(ctx, req, req.Dir, nil,
		"--api-host", "https://"+group.host,
		"secrets",
		"--project", group.project,
		"--config", group.config,
		"--json",
	)
	if err != nil {
		return nil, err
	}

	var secrets map[string]dopplerSecret
	if err := p.backend.decode(out, &secrets); err != nil {
		return nil, err
	}

	hydration := provider.Hydration{}
	var missing []string
	for _, m := range members {
		name := pathSegments(m.url)[2]
		secret, ok := secrets[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		for _, ref := range m.refs {
			hydration[ref] = secret.Computed
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, provider.NotFoundError{
			Provider: "Doppler",
			Keys:     missing,
			Location: fmt.Sprintf("project %s config %s", group.project, group.config),
		}
	}

	p.backend.opts.Logger.Debug("doppler hydration: %v", logging.RedactMap(hydration))
	return hydration, nil
}
