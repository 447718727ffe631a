package providers_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lade/internal/providers"
	"github.com/systmms/lade/pkg/provider"
	"github.com/systmms/lade/tests/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resolveFile(t *testing.T, opts providers.Options, dir string, refs ...string) (provider.Hydration, error) {
	t.Helper()
	p := providers.NewFileProvider(opts)
	for _, ref := range refs {
		require.True(t, p.Accept(ref), "should accept %s", ref)
	}
	return p.Resolve(context.Background(), provider.Request{Dir: dir})
}

func TestFileProviderAccept(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref  string
		want bool
	}{
		{"file:///path/to/config.json?query=.key", true},
		{"file://config.yaml?query=.a&other=1", true},
		{"file://~/secrets.toml?query=.x", true},
		{"file://$HOME/secrets.ini?query=.x", true},
		{"file:///path/to/config.json", false},
		{"file:///path/to/config.json?q=.key", false},
		{"vault://host/mount/key/field", false},
		{"plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()
			p := providers.NewFileProvider(providers.Options{})
			assert.Equal(t, tt.want, p.Accept(tt.ref))
		})
	}
}

func TestFileProviderFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		query   string
		want    string
	}{
		{"json", "config.json", `{"key":"myvalue"}`, ".key", "myvalue"},
		{"nested json", "config.json", `{"db":{"password":"nested_pass"}}`, ".db.password", "nested_pass"},
		{"json array index", "config.json", `{"hosts":["a","b"]}`, ".hosts[1]", "b"},
		{"json object is stringified", "config.json", `{"db": {"port": 5432, "tls": true}}`, ".db", `{"port":5432,"tls":true}`},
		{"json number", "config.json", `{"port": 5432}`, ".port", "5432"},
		{"json whole document", "config.json", `{ "a" : 1 }`, ".", `{"a":1}`},
		{"json quoted key", "config.json", `{"a.b":{"c":"dotted"}}`, `.["a.b"].c`, "dotted"},
		{"yaml", "config.yaml", "key: yamlvalue\n", ".key", "yamlvalue"},
		{"yml list", "config.yml", "items:\n  - one\n  - two\n", ".items[0]", "one"},
		{"yaml non-string keys", "config.yaml", "ports:\n  80: http\n", ".ports", `{"80":"http"}`},
		{"toml", "config.toml", "key = \"tomlvalue\"\n", ".key", "tomlvalue"},
		{"toml table", "config.toml", "[server]\nport = 8080\n", ".server.port", "8080"},
		{"ini section", "config.ini", "[section]\npassword = inivalue\n", ".section.password", "inivalue"},
		{"ini global key", "config.ini", "global_key = global_val\n[s]\nk = v\n", ".global_key", "global_val"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := writeFile(t, dir, tt.file, tt.content)
			ref := "file://" + path + "?query=" + tt.query

			hydration, err := resolveFile(t, providers.Options{}, dir, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hydration[ref])
		})
	}
}

func TestFileProviderPaths(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cwd := t.TempDir()
	writeFile(t, home, ".lade/secrets.json", `{"from":"home"}`)
	writeFile(t, cwd, "local/secrets.json", `{"from":"cwd"}`)

	refs := map[string]string{
		"file://~/.lade/secrets.json?query=.from":     "home",
		"file://$HOME/.lade/secrets.json?query=.from": "home",
		"file://local/secrets.json?query=.from":       "cwd",
		"file://./local/secrets.json?query=.from":     "cwd",
	}

	var all []string
	for ref := range refs {
		all = append(all, ref)
	}

	hydration, err := resolveFile(t, providers.Options{HomeDir: home}, cwd, all...)
	require.NoError(t, err)
	for ref, want := range refs {
		assert.Equal(t, want, hydration[ref], ref)
	}
}

func TestFileProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		content  string
		query    string
		contains []string
	}{
		{"missing query result", "config.json", `{"key":"v"}`, ".nope", []string{"no query result for .nope"}},
		{"unsupported format", "config.xml", `<a/>`, ".a", []string{"unsupported file format: xml"}},
		{"invalid json", "config.json", `{`, ".a", []string{"invalid JSON"}},
		{"invalid yaml", "config.yaml", "a: [", ".a", []string{"failed to parse YAML"}},
		{"bad query", "config.json", `{"a":1}`, "a", []string{"cannot compile query a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := writeFile(t, dir, tt.file, tt.content)

			_, err := resolveFile(t, providers.Options{}, dir, "file://"+path+"?query="+tt.query)
			testutil.AssertErrorContains(t, err, tt.contains...)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		_, err := resolveFile(t, providers.Options{}, dir, "file://absent.json?query=.a")
		testutil.AssertErrorContains(t, err, "cannot read file", "absent.json")
	})
}

func TestFileProviderReadsEachFileOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"a":"1","b":"2"}`)

	hydration, err := resolveFile(t, providers.Options{}, dir,
		"file://"+path+"?query=.a",
		"file://"+path+"?query=.b",
	)
	require.NoError(t, err)
	assert.Equal(t, provider.Hydration{
		"file://" + path + "?query=.a": "1",
		"file://" + path + "?query=.b": "2",
	}, hydration)
}
