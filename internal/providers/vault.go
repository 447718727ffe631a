package providers

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/pkg/provider"
)

const vaultInstallURL = "https://developer.hashicorp.com/vault/docs/commands"

// VaultProvider resolves vault://host[:port]/mount/keypath/FIELD references.
// The key path is a single URL-encoded segment, so nested keys are written
// as secret%2Fnested. Each (host, mount, key) is read once with `vault kv get`.
type VaultProvider struct {
	backend backend
	claims  claims
}

// vaultKV is the shape of `vault kv get -format=json` for a KV v2 mount.
type vaultKV struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

type vaultGroup struct {
	host  string
	mount string
	key   string
}

// NewVaultProvider creates a new Vault provider.
func NewVaultProvider(opts Options) *VaultProvider {
	return &VaultProvider{
		backend: backend{
			name:       "Vault",
			metric:     "vault",
			tool:       "vault",
			installURL: vaultInstallURL,
			opts:       opts.withDefaults(),
		},
		claims: newClaims(),
	}
}

// Name returns the provider name.
func (p *VaultProvider) Name() string {
	return "vault"
}

// Accept claims vault:// references.
func (p *VaultProvider) Accept(ref string) bool {
	u, ok := parseReference(ref, "vault")
	if !ok {
		return false
	}
	p.claims.add(u, ref)
	return true
}

func vaultSegments(u *url.URL) (mount, key, field string, err error) {
	segs, err := requireSegments(u, 3, "vault://host/mount/keypath/FIELD")
	if err != nil {
		return "", "", "", err
	}
	if key, err = url.PathUnescape(segs[1]); err != nil {
		return "", "", "", fmt.Errorf("invalid key in %s: %w", u.Redacted(), err)
	}
	if field, err = url.PathUnescape(segs[2]); err != nil {
		return "", "", "", fmt.Errorf("invalid field in %s: %w", u.Redacted(), err)
	}
	return segs[0], key, field, nil
}

// Resolve reads each (host, mount, key) once and picks the claimed fields.
func (p *VaultProvider) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	if p.claims.empty() {
		return provider.Hydration{}, nil
	}

	groups, err := groupBy(p.claims, func(u *url.URL) (vaultGroup, error) {
		mount, key, _, err := vaultSegments(u)
		if err != nil {
			return vaultGroup{}, err
		}
		return vaultGroup{host: u.Host, mount: mount, key: key}, nil
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

func (p *VaultProvider) fetch(ctx context.Context, req provider.Request, group vaultGroup, members []claim) (provider.Hydration, error) {
	out, err := p.backend.run(ctx, req, req.Dir, nil,
		"kv", "get",
		"-address=https://"+group.host,
		"-mount="+group.mount,
		"-format=json",
		group.key,
	)
	if err != nil {
		return nil, err
	}

	var kv vaultKV
	if err := p.backend.decode(out, &kv); err != nil {
		return nil, err
	}

	hydration := provider.Hydration{}
	var missing []string
	for _, m := range members {
		_, _, field, err := vaultSegments(m.url)
		if err != nil {
			return nil, err
		}
		value, ok := kv.Data.Data[field]
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
			Provider: "Vault",
			Keys:     missing,
			Location: fmt.Sprintf("key %s of mount %s", group.key, group.mount),
		}
	}

	p.backend.opts.Logger.Debug("vault hydration: %v", logging.RedactMap(hydration))
	return hydration, nil
}
