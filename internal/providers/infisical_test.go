package providers_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lade/internal/providers"
	pkgexec "github.com/systmms/lade/pkg/exec"
	"github.com/systmms/lade/pkg/provider"
	"github.com/systmms/lade/tests/testutil"
)

func TestInfisicalProviderContract(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("infisical --domain https://localhost/api export --path / --env dev",
		testutil.InfisicalMockResponses{}.Export("/", map[string]string{"A": "1"}))
	mock.AddResponse("infisical --domain https://localhost/api export --path /nested/dir --env dev",
		testutil.InfisicalMockResponses{}.Export("/nested/dir", map[string]string{"B": "2"}))

	provider.RunContractTests(t, provider.ContractTest{
		CreateProvider: func(t *testing.T) provider.Provider {
			return providers.NewInfisicalProvider(providers.Options{Executor: mock})
		},
		Accepted: []string{
			"infisical://localhost/proj/dev/A",
			"infisical://localhost/proj/dev/nested/dir/B",
		},
		Rejected: []string{
			"doppler://localhost/proj/dev/A",
			"infisical:/localhost/proj/dev/A",
		},
		Request: func(t *testing.T) provider.Request {
			return provider.Request{Dir: t.TempDir()}
		},
	})
}

func TestInfisicalProviderGroupsBySecretPath(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.StrictMode = true
	mock.AddResponse("infisical --domain https://eu.infisical.com/api export --path / --env prod --projectId p1 --format json",
		testutil.InfisicalMockResponses{}.Export("/", map[string]string{"ROOT_A": "a", "ROOT_B": "b"}))
	mock.AddResponse("infisical --domain https://eu.infisical.com/api export --path /svc/api --env prod --projectId p1 --format json",
		testutil.InfisicalMockResponses{}.Export("/svc/api", map[string]string{"TOKEN": "t"}))

	p := providers.NewInfisicalProvider(providers.Options{Executor: mock})
	for _, ref := range []string{
		"infisical://eu.infisical.com/p1/prod/ROOT_A",
		"infisical://eu.infisical.com/p1/prod/ROOT_B",
		"infisical://eu.infisical.com/p1/prod/svc/api/TOKEN",
	} {
		require.True(t, p.Accept(ref))
	}

	hydration, err := p.Resolve(context.Background(), provider.Request{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, provider.Hydration{
		"infisical://eu.infisical.com/p1/prod/ROOT_A":       "a",
		"infisical://eu.infisical.com/p1/prod/ROOT_B":       "b",
		"infisical://eu.infisical.com/p1/prod/svc/api/TOKEN": "t",
	}, hydration)
	mock.AssertCallCount(t, "infisical", 2)
}

func TestInfisicalProviderWorkspace(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		dirs      []string
		workspace infisicalWorkspaceFile
	)

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("infisical", testutil.InfisicalMockResponses{}.Export("/", map[string]string{"A": "1"}))
	mock.OnExecute = func(cmd pkgexec.Command) {
		mu.Lock()
		defer mu.Unlock()
		dirs = append(dirs, cmd.Dir)

		data, err := os.ReadFile(filepath.Join(cmd.Dir, ".infisical.json"))
		if assert.NoError(t, err) {
			assert.NoError(t, json.Unmarshal(data, &workspace))
		}
	}

	p := providers.NewInfisicalProvider(providers.Options{Executor: mock})
	require.True(t, p.Accept("infisical://localhost/proj-42/dev/A"))

	cwd := t.TempDir()
	_, err := p.Resolve(context.Background(), provider.Request{Dir: cwd})
	require.NoError(t, err)

	require.Len(t, dirs, 1)
	assert.NotEqual(t, cwd, dirs[0])
	assert.Equal(t, "proj-42", workspace.WorkspaceID)
	assert.Empty(t, workspace.DefaultEnvironment)

	_, err = os.Stat(dirs[0])
	assert.True(t, os.IsNotExist(err), "workspace should be removed after the call")
}

type infisicalWorkspaceFile struct {
	WorkspaceID        string `json:"workspaceId"`
	DefaultEnvironment string `json:"defaultEnvironment"`
}

func TestInfisicalProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response testutil.MockResponse
		contains []string
	}{
		{
			name:     "login expired",
			response: testutil.InfisicalMockResponses{}.LoginExpired(),
			contains: []string{"Login expired for Infisical instance localhost:8080"},
		},
		{
			name: "inaccessible workspace",
			response: testutil.MockResponse{
				Stderr: []byte("error: unable to validate environment"),
				Err:    assert.AnError,
			},
			contains: []string{"Workspace seems not accessible from logged account on localhost:8080"},
		},
		{
			name:     "other failure",
			response: testutil.MockResponse{Stdout: []byte("<html>"), Stderr: []byte("boom")},
			contains: []string{"Infisical error", "stderr: boom"},
		},
		{
			name:     "missing variable",
			response: testutil.InfisicalMockResponses{}.Export("/", map[string]string{"OTHER": "x"}),
			contains: []string{"Variable A not found in Infisical path / of project proj"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := testutil.NewMockCommandExecutor()
			mock.AddResponse("infisical", tt.response)

			p := providers.NewInfisicalProvider(providers.Options{Executor: mock})
			require.True(t, p.Accept("infisical://localhost:8080/proj/dev/A"))

			_, err := p.Resolve(context.Background(), provider.Request{Dir: t.TempDir()})
			testutil.AssertErrorContains(t, err, tt.contains...)
		})
	}
}

func TestInfisicalProviderMissingBinary(t *testing.T) {
	t.Parallel()

	p := providers.NewInfisicalProvider(providers.Options{})
	require.True(t, p.Accept("infisical://localhost/proj/dev/A"))

	_, err := p.Resolve(context.Background(), provider.Request{
		Dir: t.TempDir(),
		Env: testutil.PathEnv(t.TempDir()),
	})
	testutil.AssertErrorContains(t, err, "Infisical CLI not found", "https://infisical.com/docs/cli/overview")
}

func TestInfisicalProviderFakeCLI(t *testing.T) {
	t.Parallel()

	bin := t.TempDir()
	// The fake only answers when it runs inside the generated workspace.
	testutil.FakeCLI(t, bin, "infisical", `
if [ -f .infisical.json ]; then
  echo '[{"key":"A","value":"from-cli","secretPath":"/"}]'
else
  echo "no workspace" >&2
  exit 1
fi`)

	p := providers.NewInfisicalProvider(providers.Options{})
	require.True(t, p.Accept("infisical://localhost/proj/dev/A"))

	hydration, err := p.Resolve(context.Background(), provider.Request{
		Dir: t.TempDir(),
		Env: testutil.PathEnv(bin),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-cli", hydration["infisical://localhost/proj/dev/A"])
}
