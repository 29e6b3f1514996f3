package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crazypanel/internal/testsupport"
)

type cliTestEnv struct {
	backend    *testsupport.Backend
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.BackendOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("CRAZY_POSTER_API_URL", "")
	t.Setenv("CRAZYPANEL_NTFY_TOPIC", "")

	backend := testsupport.NewBackend(t, opts...)
	configPath := filepath.Join(homeDir, ".config", "crazypanel", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, backend.URL(), filepath.Join(base, "state"))

	return &cliTestEnv{
		backend:    backend,
		configPath: configPath,
		baseDir:    base,
	}
}

func (e *cliTestEnv) writeCSV(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "csv", name)
	testsupport.WriteFile(t, path, size)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, apiURL, stateDir string) {
	t.Helper()
	content := fmt.Sprintf(
		"[api]\nbase_url = %q\n\n[panel]\nbind = \"127.0.0.1:0\"\nstate_dir = %q\n",
		apiURL,
		stateDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected exit code %d, got success", want)
	}
	if got := exitCode(err); got != want {
		t.Fatalf("exit code = %d, want %d (%v)", got, want, err)
	}
}
