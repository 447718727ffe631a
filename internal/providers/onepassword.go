package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/pkg/provider"
)

const onePasswordInstallURL = "https://developer.1password.com/docs/cli/get-started/"

// onePasswordDelimiter separates the fields of one `op inject` batch. A
// secret containing it breaks the split, which is reported as a count
// mismatch rather than silently misassigned.
// TODO: switch to one `op read` per field if batches start failing on it.
const onePasswordDelimiter = "__LADE_OP_DELIMITER__"

// OnePasswordProvider resolves op://account/vault/item/field references with
// one `op inject` per account. The host of the URI names the account.
type OnePasswordProvider struct {
	backend backend
	claims  claims
}

// NewOnePasswordProvider creates a new 1Password provider.
func NewOnePasswordProvider(opts Options) *OnePasswordProvider {
	return &OnePasswordProvider{
		backend: backend{
			name:       "1Password",
			metric:     "onepassword",
			tool:       "op",
			installURL: onePasswordInstallURL,
			opts:       opts.withDefaults(),
		},
		claims: newClaims(),
	}
}

// Name returns the provider name.
func (p *OnePasswordProvider) Name() string {
	return "onepassword"
}

// Accept claims op:// references.
func (p *OnePasswordProvider) Accept(ref string) bool {
	u, ok := parseReference(ref, "op")
	if !ok {
		return false
	}
	p.claims.add(u, ref)
	return true
}

// Resolve injects every claimed field of an account in a single batch.
func (p *OnePasswordProvider) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	if p.claims.empty() {
		return provider.Hydration{}, nil
	}

	groups, err := groupBy(p.claims, func(u *url.URL) (string, error) {
		if _, err := requireSegments(u, 1, "op://account/vault/item/field"); err != nil {
			return "", err
		}
		return u.Host, nil
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]task, 0, len(groups))
	for account, members := range groups {
		tasks = append(tasks, func(ctx context.Context) (provider.Hydration, error) {
			return p.inject(ctx, req, account, members)
		})
	}
	return fanOut(ctx, tasks)
}

// onePasswordTemplate renders the secret reference op expects, which has no
// account in it.
func onePasswordTemplate(u *url.URL) string {
	return "{{ op://" + strings.TrimPrefix(u.Path, "/") + " }}"
}

func (p *OnePasswordProvider) inject(ctx context.Context, req provider.Request, account string, members []claim) (provider.Hydration, error) {
	templates := make([]string, len(members))
	for i, m := range members {
		templates[i] = onePasswordTemplate(m.url)
	}
	stdin := strings.Join(templates, onePasswordDelimiter)

	out, err := p.backend.run(ctx, req, req.Dir, []byte(stdin), "inject", "--account", account)
	if err != nil {
		return nil, err
	}
	if out.ExitErr != nil {
		return nil, provider.OutputError{Provider: "1Password", Stderr: string(out.Stderr), Err: out.ExitErr}
	}

	values := strings.Split(string(out.Stdout), onePasswordDelimiter)
	if len(values) != len(members) {
		return nil, provider.OutputError{
			Provider: "1Password",
			Stderr:   string(out.Stderr),
			Err:      fmt.Errorf("1Password returned %d values, expected %d", len(values), len(members)),
		}
	}

	hydration := provider.Hydration{}
	for i, m := range members {
		for _, ref := range m.refs {
			hydration[ref] = values[i]
		}
	}

	p.backend.opts.Logger.Debug("onepassword hydration: %v", logging.RedactMap(hydration))
	return hydration, nil
}
