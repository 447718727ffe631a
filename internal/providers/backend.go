package providers

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"time"

	pkgexec "github.com/systmms/lade/pkg/exec"
	"github.com/systmms/lade/pkg/provider"
)

// backend runs one secret manager CLI on behalf of a provider.
type backend struct {
	name       string // Display name used in errors, e.g. "Vault"
	metric     string // Provider name used in logs and metrics, e.g. "vault"
	tool       string
	installURL string
	opts       Options
}

// output is what a CLI call produced. ExitErr is set when the process ran
// but exited non-zero; stdout may still hold a usable answer.
type output struct {
	Stdout  []byte
	Stderr  []byte
	ExitErr error
}

// run executes the CLI. A missing binary becomes CLINotFoundError; any other
// failure to start the process becomes OutputError with the captured stderr.
func (b backend) run(ctx context.Context, req provider.Request, dir string, stdin []byte, args ...string) (output, error) {
	cmd := pkgexec.Command{
		Name:  b.tool,
		Args:  args,
		Env:   req.Env,
		Dir:   dir,
		Stdin: stdin,
	}
	b.opts.Logger.Debug("lade run: %s", cmd)

	started := time.Now()
	stdout, stderr, err := b.opts.Executor.Execute(ctx, cmd)
	b.opts.Metrics.RecordBackendCall(b.metric, started, err)

	if err == nil {
		return output{Stdout: stdout, Stderr: stderr}, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return output{}, provider.CLINotFoundError{
			Provider:   b.name,
			Tool:       b.tool,
			InstallURL: b.installURL,
			Err:        err,
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output{}, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || len(stdout) > 0 || len(stderr) > 0 {
		return output{Stdout: stdout, Stderr: stderr, ExitErr: err}, nil
	}
	return output{}, provider.OutputError{Provider: b.name, Err: err}
}

// decode parses the CLI's stdout as JSON into v.
func (b backend) decode(out output, v any) error {
	if err := json.Unmarshal(out.Stdout, v); err != nil {
		return provider.OutputError{Provider: b.name, Stderr: string(out.Stderr), Err: err}
	}
	return nil
}

// stringify renders a decoded JSON value: strings as-is, anything else as
// compact JSON.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
