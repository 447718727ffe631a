package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/pkg/provider"
)

const infisicalInstallURL = "https://infisical.com/docs/cli/overview"

// InfisicalProvider resolves
// infisical://host[:port]/project/env/[sub/path/]NAME references with one
// `infisical export` per (host, project, env, secret path).
type InfisicalProvider struct {
	backend backend
	claims  claims
}

// infisicalSecret is one entry of `infisical export --format json`.
type infisicalSecret struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	SecretPath string `json:"secretPath"`
}

// infisicalWorkspace is the .infisical.json the CLI reads from its working directory.
type infisicalWorkspace struct {
	WorkspaceID        string `json:"workspaceId"`
	DefaultEnvironment string `json:"defaultEnvironment"`
}

type infisicalGroup struct {
	host    string
	project string
	env     string
	path    string
}

// NewInfisicalProvider creates a new Infisical provider.
func NewInfisicalProvider(opts Options) *InfisicalProvider {
	return &InfisicalProvider{
		backend: backend{
			name:       "Infisical",
			metric:     "infisical",
			tool:       "infisical",
			installURL: infisicalInstallURL,
			opts:       opts.withDefaults(),
		},
		claims: newClaims(),
	}
}

// Name returns the provider name.
func (p *InfisicalProvider) Name() string {
	return "infisical"
}

// Accept claims infisical:// references.
func (p *InfisicalProvider) Accept(ref string) bool {
	u, ok := parseReference(ref, "infisical")
	if !ok {
		return false
	}
	p.claims.add(u, ref)
	return true
}

// infisicalSecretPath derives the secret path from the segments between the
// environment and the variable name. Without any, the path is the root.
func infisicalSecretPath(segs []string) string {
	if len(segs) > 3 {
		return "/" + strings.Join(segs[2:len(segs)-1], "/")
	}
	return "/"
}

// Resolve exports each (host, project, env, path) once and picks the claimed names.
func (p *InfisicalProvider) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	if p.claims.empty() {
		return provider.Hydration{}, nil
	}

	groups, err := groupBy(p.claims, func(u *url.URL) (infisicalGroup, error) {
		segs, err := requireSegments(u, 3, "infisical://host/project/env/[path/]NAME")
		if err != nil {
			return infisicalGroup{}, err
		}
		return infisicalGroup{
			host:    u.Host,
			project: segs[0],
			env:     segs[1],
			path:    infisicalSecretPath(segs),
		}, nil
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

func (p *InfisicalProvider) fetch(ctx context.Context, req provider.Request, group infisicalGroup, members []claim) (provider.Hydration, error) {
	workspace, err := p.writeWorkspace(group.project)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			p.backend.opts.Logger.Warn("Failed to remove Infisical workspace %s: %v", workspace, err)
		}
	}()

	out, err := p.backend.run(ctx, req, workspace, nil,
		"--domain", "https://"+group.host+"/api",
		"export",
		"--path", group.path,
		"--env", group.env,
		"--projectId", group.project,
		"--format", "json",
	)
	if err != nil {
		return nil, err
	}

	var secrets []infisicalSecret
	if err := json.Unmarshal(out.Stdout, &secrets); err != nil {
		return nil, p.classify(group.host, out, err)
	}

	values := make(map[string]string, len(secrets))
	for _, s := range secrets {
		values[s.Key] = s.Value
	}

	hydration := provider.Hydration{}
	var missing []string
	for _, m := range members {
		segs := pathSegments(m.url)
		name := segs[len(segs)-1]
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		for _, ref := range m.refs {
			hydration[ref] = value
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, provider.NotFoundError{
			Provider: "Infisical",
			Keys:     missing,
			Location: fmt.Sprintf("path %s of project %s", group.path, group.project),
		}
	}

	p.backend.opts.Logger.Debug("infisical hydration: %v", logging.RedactMap(hydration))
	return hydration, nil
}

// writeWorkspace creates a throwaway directory holding the project's
// .infisical.json, used as the CLI's working directory.
func (p *InfisicalProvider) writeWorkspace(project string) (string, error) {
	dir, err := os.MkdirTemp("", "lade-infisical-")
	if err != nil {
		return "", fmt.Errorf("failed to create Infisical workspace: %w", err)
	}

	data, err := json.Marshal(infisicalWorkspace{WorkspaceID: project})
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, ".infisical.json"), data, 0o600)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write Infisical workspace config: %w", err)
	}
	return dir, nil
}

// classify turns an unparsable export into the most helpful error based on stderr.
func (p *InfisicalProvider) classify(host string, out output, err error) error {
	stderr := strings.TrimSpace(string(out.Stderr))
	switch {
	case strings.Contains(stderr, "login expired"):
		return fmt.Errorf("Login expired for Infisical instance %s: %s", host, stderr)
	case strings.Contains(stderr, "unable to validate environment"):
		return fmt.Errorf("Workspace seems not accessible from logged account on %s: %s", host, stderr)
	default:
		return provider.OutputError{Provider: "Infisical", Stderr: stderr, Err: err}
	}
}
