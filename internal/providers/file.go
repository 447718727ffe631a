package providers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/tidwall/gjson"

	"github.com/systmms/lade/internal/logging"
	"github.com/systmms/lade/pkg/provider"
)

const fileScheme = "file://"

// FileProvider resolves file://path?query=.a.b references against local
// json, yaml, toml or ini documents. Each distinct file is read once.
type FileProvider struct {
	opts Options
	refs map[string]struct{}
}

// NewFileProvider creates a new file provider.
func NewFileProvider(opts Options) *FileProvider {
	return &FileProvider{
		opts: opts.withDefaults(),
		refs: make(map[string]struct{}),
	}
}

// Name returns the provider name.
func (p *FileProvider) Name() string {
	return "file"
}

// splitFileReference returns the path and query of a file:// reference. The
// path is taken verbatim so ~ and $HOME survive.
func splitFileReference(ref string) (path, query string, ok bool) {
	if !strings.HasPrefix(ref, fileScheme) {
		return "", "", false
	}
	path, rawQuery, found := strings.Cut(strings.TrimPrefix(ref, fileScheme), "?")
	if !found {
		return "", "", false
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil || !values.Has("query") {
		return "", "", false
	}
	return path, values.Get("query"), true
}

// Accept claims file:// references carrying a query parameter. Other file://
// strings are left to the raw provider.
func (p *FileProvider) Accept(ref string) bool {
	if _, _, ok := splitFileReference(ref); !ok {
		return false
	}
	p.refs[ref] = struct{}{}
	return true
}

// expand resolves ~/ and $HOME/ against the home directory and relative
// paths against dir.
func (p *FileProvider) expand(path, dir string) (string, error) {
	for _, prefix := range []string{"~/", "$HOME/"} {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		home := p.opts.HomeDir
		if home == "" {
			var err error
			if home, err = homedir.Dir(); err != nil {
				return "", fmt.Errorf("cannot get HOME location: %w", err)
			}
		}
		return filepath.Join(home, strings.TrimPrefix(path, prefix)), nil
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(dir, path), nil
	}
	return filepath.Clean(path), nil
}

// Resolve reads every referenced file once and evaluates the queries on it.
func (p *FileProvider) Resolve(ctx context.Context, req provider.Request) (provider.Hydration, error) {
	if len(p.refs) == 0 {
		return provider.Hydration{}, nil
	}

	refs := make([]string, 0, len(p.refs))
	for ref := range p.refs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	groups := make(map[string][]string)
	for _, ref := range refs {
		raw, _, _ := splitFileReference(ref)
		path, err := p.expand(raw, req.Dir)
		if err != nil {
			return nil, err
		}
		groups[path] = append(groups[path], ref)
	}

	tasks := make([]task, 0, len(groups))
	for path, members := range groups {
		tasks = append(tasks, func(ctx context.Context) (provider.Hydration, error) {
			return p.query(path, members)
		})
	}
	return fanOut(ctx, tasks)
}

func (p *FileProvider) query(path string, refs []string) (provider.Hydration, error) {
	started := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		p.opts.Metrics.RecordBackendCall("file", started, err)
		return nil, fmt.Errorf("cannot read file %s: %w", path, err)
	}
	doc, err := documentJSON(path, data)
	p.opts.Metrics.RecordBackendCall("file", started, err)
	if err != nil {
		return nil, err
	}

	hydration := provider.Hydration{}
	for _, ref := range refs {
		_, query, _ := splitFileReference(ref)
		gpath, err := gjsonPath(query)
		if err != nil {
			return nil, err
		}
		result := gjson.GetBytes(doc, gpath)
		if !result.Exists() {
			return nil, fmt.Errorf("no query result for %s in %s", query, path)
		}
		if result.Type == gjson.String {
			hydration[ref] = result.Str
		} else {
			hydration[ref] = compactJSON(result.Raw)
		}
	}

	p.opts.Logger.Debug("file hydration from %s: %v", path, logging.RedactMap(hydration))
	return hydration, nil
}
