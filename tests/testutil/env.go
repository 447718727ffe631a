package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeCLI writes an executable shell script called name into dir.
//
// Together with PathEnv it lets tests run the real executor against a stub
// backend binary:
//
//	bin := t.TempDir()
//	FakeCLI(t, bin, "vault", `echo '{"data":{"data":{"password":"s3cret"}}}'`)
//	req := provider.Request{Dir: t.TempDir(), Env: PathEnv(bin)}
func FakeCLI(t *testing.T, dir, name, body string) string {
	t.Helper()
	SkipWithoutShell(t)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake CLI %s: %v", name, err)
	}
	return path
}

// PathEnv returns an extra environment whose PATH only contains dirs.
func PathEnv(dirs ...string) map[string]string {
	return map[string]string{"PATH": strings.Join(dirs, string(os.PathListSeparator))}
}

// PathEnvWithSystem returns an extra environment whose PATH is dir followed
// by the usual system directories, for fake CLIs that call cat or rm.
func PathEnvWithSystem(dir string) map[string]string {
	return map[string]string{"PATH": dir + string(os.PathListSeparator) + "/usr/bin" + string(os.PathListSeparator) + "/bin"}
}

// SkipWithoutShell skips tests that need /bin/sh scripts.
func SkipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLIs are shell scripts; not supported on windows")
	}
}
