package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"permanentes/internal/config"
	"permanentes/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("PERMANENTES_API_TOKEN", "")
	t.Setenv("PERMANENTES_DATABASE_URL", "")
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(base, "permanentes.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func (env *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, stdin, append([]string{"--config", env.configPath}, args...))
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := env.run(t, "", args...)
	if err != nil {
		t.Fatalf("permanentes %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

func runCLI(t *testing.T, stdin string, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[import]\nencoding = \"utf-8\"\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
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
