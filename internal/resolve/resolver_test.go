package resolve_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lade/internal/config"
	"github.com/systmms/lade/internal/metrics"
	"github.com/systmms/lade/internal/resolve"
	"github.com/systmms/lade/pkg/provider"
	"github.com/systmms/lade/tests/testutil"
)

func parseRules(t *testing.T, dir, data string) []config.Match {
	t.Helper()
	matches, err := config.Parse([]byte(data), dir)
	require.NoError(t, err)
	return matches
}

func TestHydrate(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("vault", testutil.VaultMockResponses{}.KVGet(`{"password":"s3cret","user":"admin"}`))

	r := resolve.New(resolve.Options{Dir: t.TempDir(), Executor: mock})
	values, err := r.Hydrate(context.Background(), "", map[string]string{
		"DB_PASS":  "vault://localhost/secret/app/password",
		"DB_PASS2": "vault://localhost/secret/app/password",
		"DB_USER":  "vault://localhost/secret/app/user",
		"LITERAL":  "plain",
		"ESCAPED":  "!vault://not/a/reference",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"DB_PASS":  "s3cret",
		"DB_PASS2": "s3cret",
		"DB_USER":  "admin",
		"LITERAL":  "plain",
		"ESCAPED":  "vault://not/a/reference",
	}, values)
	mock.AssertCallCount(t, "vault", 1)
}

func TestHydrateEmpty(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	values, err := resolve.New(resolve.Options{Executor: mock}).Hydrate(context.Background(), t.TempDir(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Equal(t, 0, mock.CallCount())
}

func TestHydrateRuleSelectsIdentity(t *testing.T) {
	t.Parallel()

	matches := parseRules(t, "/work", `
deploy:
  SHARED: shared
  TOKEN:
    alice: alice-token
    .: default-token
  ONLY_BOB:
    bob: bob-only
  OPTED_OUT:
    alice: ~
    .: fallback
`)
	require.Len(t, matches, 1)

	tests := []struct {
		identity string
		want     map[string]string
	}{
		{"alice", map[string]string{"SHARED": "shared", "TOKEN": "alice-token"}},
		{"bob", map[string]string{"SHARED": "shared", "TOKEN": "default-token", "ONLY_BOB": "bob-only", "OPTED_OUT": "fallback"}},
		{"", map[string]string{"SHARED": "shared", "TOKEN": "default-token", "OPTED_OUT": "fallback"}},
	}

	for _, tt := range tests {
		t.Run("identity "+tt.identity, func(t *testing.T) {
			t.Parallel()
			r := resolve.New(resolve.Options{Identity: tt.identity, Executor: testutil.NewMockCommandExecutor()})
			output, values, err := r.HydrateRule(context.Background(), matches[0])
			require.NoError(t, err)
			assert.Equal(t, config.EnvOutput, output)
			assert.Equal(t, tt.want, values)
		})
	}
}

func TestHydrateRuleBootstrapsServiceAccount(t *testing.T) {
	t.Parallel()

	matches := parseRules(t, "/work", `
deploy:
  .:
    1password_service_account: "!ops_${SUFFIX}"
  API_KEY: op://my.1password.com/vault/item/field
`)

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("op", testutil.OnePasswordMockResponses{}.Inject("__LADE_OP_DELIMITER__", "api-key"))

	r := resolve.New(resolve.Options{
		Executor: mock,
		Env:      map[string]string{"SUFFIX": "abc"},
	})
	_, values, err := r.HydrateRule(context.Background(), matches[0])
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"API_KEY": "api-key"}, values)

	calls := mock.GetCalls("op")
	require.Len(t, calls, 1)
	assert.Equal(t, "ops_abc", calls[0].Env[resolve.ServiceAccountEnv])
}

func TestHydrateRuleBootstrapFailure(t *testing.T) {
	t.Parallel()

	matches := parseRules(t, "/work", `
deploy:
  .:
    1password_service_account: vault://localhost/secret/op/token
  API_KEY: op://my.1password.com/vault/item/field
`)

	mock := testutil.NewMockCommandExecutor()
	mock.AddMissingBinary("vault")

	_, _, err := resolve.New(resolve.Options{Executor: mock}).HydrateRule(context.Background(), matches[0])
	testutil.AssertErrorContains(t, err, "1password_service_account")

	var notFound provider.CLINotFoundError
	assert.ErrorAs(t, err, &notFound)
	mock.AssertNotCalled(t, "op")
}

func TestHydrateRuleResolvesFilesFromRuleDir(t *testing.T) {
	t.Parallel()

	ruleDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ruleDir, "values.json"), []byte(`{"k":"from-rule-dir"}`), 0o600))

	matches := parseRules(t, ruleDir, "run:\n  K: file://values.json?query=.k\n")
	r := resolve.New(resolve.Options{Dir: t.TempDir()})

	_, values, err := r.HydrateRule(context.Background(), matches[0])
	require.NoError(t, err)
	assert.Equal(t, "from-rule-dir", values["K"])
}

func TestCollectMergesByOutputInOrder(t *testing.T) {
	t.Parallel()

	root := parseRules(t, "/work", `
"^app":
  A: root
  B: root
"^app run":
  .: {file: secrets.json}
  F: root-file
`)
	child := parseRules(t, "/work/sub", `
"^app":
  A: child
"^app run":
  .: {file: ../secrets.json}
  F: child-file
  G: child-file
`)
	rules := config.NewRuleSet(append(root, child...))

	reg := prometheus.NewRegistry()
	m := metrics.NewBackendMetrics(reg)
	r := resolve.New(resolve.Options{Executor: testutil.NewMockCommandExecutor(), Metrics: m})

	outputs, err := r.CollectCommand(context.Background(), rules, "app run")
	require.NoError(t, err)

	assert.Equal(t, resolve.Outputs{
		config.EnvOutput:     {"A": "child", "B": "root"},
		"/work/secrets.json": {"F": "child-file", "G": "child-file"},
	}, outputs)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Hydrations().WithLabelValues(metrics.StatusOK)))
}

func TestCollectNoMatch(t *testing.T) {
	t.Parallel()

	r := resolve.New(resolve.Options{Executor: testutil.NewMockCommandExecutor()})
	outputs, err := r.Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestCollectFailsOnAnyRule(t *testing.T) {
	t.Parallel()

	matches := parseRules(t, "/work", `
ok:
  A: literal
broken:
  B: doppler://localhost/project/config/B
`)

	mock := testutil.NewMockCommandExecutor()
	mock.AddMissingBinary("doppler")

	reg := prometheus.NewRegistry()
	m := metrics.NewBackendMetrics(reg)
	r := resolve.New(resolve.Options{Executor: mock, Metrics: m})

	outputs, err := r.Collect(context.Background(), matches)
	require.Error(t, err)
	assert.Nil(t, outputs)

	var notFound provider.CLINotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "doppler", notFound.Tool)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Hydrations().WithLabelValues(metrics.StatusError)))
}

func TestCollectCommandFromRuleFile(t *testing.T) {
	t.Parallel()

	tree := testutil.NewRuleTree(t)
	tree.Write("proj", "lade.yml", `"deploy.*": { DB_PASS: "vault://host/secret/app/password" }`+"\n")

	cfg := &config.Config{Dir: tree.Dir("proj/sub")}
	require.NoError(t, cfg.Load())

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("vault", testutil.VaultMockResponses{}.KVGet(`{"password":"s3cret"}`))

	outputs, err := resolve.New(resolve.Options{Executor: mock}).CollectCommand(context.Background(), cfg.Rules, "deploy prod")
	require.NoError(t, err)
	assert.Equal(t, resolve.Outputs{config.EnvOutput: {"DB_PASS": "s3cret"}}, outputs)
	mock.AssertCallCount(t, "vault", 1)
}
