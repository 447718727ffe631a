package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lade/internal/providers"
	"github.com/systmms/lade/pkg/provider"
	"github.com/systmms/lade/tests/testutil"
)

func TestPassboltProviderContract(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("passbolt get resource --serverAddress=https://passbolt.example.com --id=res-1 --json",
		testutil.PassboltMockResponses{}.Resource("db", "admin", "pw"))

	provider.RunContractTests(t, provider.ContractTest{
		CreateProvider: func(t *testing.T) provider.Provider {
			return providers.NewPassboltProvider(providers.Options{Executor: mock})
		},
		Accepted: []string{
			"passbolt://passbolt.example.com/res-1/password",
			"passbolt://passbolt.example.com/res-1/username",
		},
		Rejected: []string{
			"vault://host/mount/key/field",
			"passbolt",
		},
		Request: func(t *testing.T) provider.Request {
			return provider.Request{Dir: t.TempDir()}
		},
	})
}

func TestPassboltProviderOneCallPerResource(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.StrictMode = true
	mock.AddResponse("passbolt get resource --serverAddress=https://pb.local --id=r1 --json",
		testutil.PassboltMockResponses{}.Resource("one", "u1", "p1"))
	mock.AddResponse("passbolt get resource --serverAddress=https://pb.local --id=r2 --json",
		testutil.PassboltMockResponses{}.Resource("two", "u2", "p2"))

	p := providers.NewPassboltProvider(providers.Options{Executor: mock})
	for _, ref := range []string{
		"passbolt://pb.local/r1/username",
		"passbolt://pb.local/r1/password",
		"passbolt://pb.local/r2/password",
	} {
		require.True(t, p.Accept(ref))
	}

	hydration, err := p.Resolve(context.Background(), provider.Request{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, provider.Hydration{
		"passbolt://pb.local/r1/username": "u1",
		"passbolt://pb.local/r1/password": "p1",
		"passbolt://pb.local/r2/password": "p2",
	}, hydration)
	mock.AssertCallCount(t, "passbolt", 2)
}

func TestPassboltProviderDropsPort(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.StrictMode = true
	mock.AddResponse("passbolt get resource --serverAddress=https://pb.local --id=r1 --json",
		testutil.PassboltMockResponses{}.Resource("one", "u1", "p1"))

	p := providers.NewPassboltProvider(providers.Options{Executor: mock})
	require.True(t, p.Accept("passbolt://pb.local:8443/r1/password"))

	hydration, err := p.Resolve(context.Background(), provider.Request{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, provider.Hydration{"passbolt://pb.local:8443/r1/password": "p1"}, hydration)
}

func TestPassboltProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ref      string
		setup    func(m *testutil.MockCommandExecutor)
		contains []string
	}{
		{
			name: "missing field",
			ref:  "passbolt://pb.local/r1/totp",
			setup: func(m *testutil.MockCommandExecutor) {
				m.AddResponse("passbolt", testutil.PassboltMockResponses{}.Resource("one", "u1", "p1"))
			},
			contains: []string{"Variable totp not found in Passbolt resource r1"},
		},
		{
			name: "missing binary",
			ref:  "passbolt://pb.local/r1/password",
			setup: func(m *testutil.MockCommandExecutor) {
				m.AddMissingBinary("passbolt")
			},
			contains: []string{"Passbolt CLI not found", "https://github.com/passbolt/go-passbolt-cli"},
		},
		{
			name: "malformed output",
			ref:  "passbolt://pb.local/r1/password",
			setup: func(m *testutil.MockCommandExecutor) {
				m.AddJSONResponse("passbolt", "not valid json")
			},
			contains: []string{"Passbolt error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := testutil.NewMockCommandExecutor()
			tt.setup(mock)

			p := providers.NewPassboltProvider(providers.Options{Executor: mock})
			require.True(t, p.Accept(tt.ref))

			_, err := p.Resolve(context.Background(), provider.Request{Dir: t.TempDir()})
			testutil.AssertErrorContains(t, err, tt.contains...)
		})
	}
}

func TestPassboltProviderFakeCLI(t *testing.T) {
	t.Parallel()

	bin := t.TempDir()
	testutil.FakeCLI(t, bin, "passbolt", `echo '{"password":"passbolt_value","username":"user"}'`)

	p := providers.NewPassboltProvider(providers.Options{})
	require.True(t, p.Accept("passbolt://passbolt.example.com/resource-uuid/password"))

	hydration, err := p.Resolve(context.Background(), provider.Request{
		Dir: t.TempDir(),
		Env: testutil.PathEnv(bin),
	})
	require.NoError(t, err)
	assert.Equal(t, "passbolt_value", hydration["passbolt://passbolt.example.com/resource-uuid/password"])
}
