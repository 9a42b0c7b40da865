package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"permanentes/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PERMANENTES_API_TOKEN", "")
	t.Setenv("PERMANENTES_DATABASE_URL", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "permanentes")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Registry.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.Registry.Driver)
	}
	if cfg.Matching.CenturyCutoff != 50 {
		t.Fatalf("expected century cutoff 50, got %d", cfg.Matching.CenturyCutoff)
	}
	if cfg.Matching.PermanentMarker != "PERMANENTE" {
		t.Fatalf("unexpected permanent marker: %q", cfg.Matching.PermanentMarker)
	}
	if cfg.Matching.Workers != 1 {
		t.Fatalf("expected one worker by default, got %d", cfg.Matching.Workers)
	}
	if cfg.Import.Encoding != "latin-1" || cfg.Import.Delimiter != "auto" || cfg.Import.BatchSize != 500 {
		t.Fatalf("unexpected import defaults: %+v", cfg.Import)
	}
	if cfg.RegistryPath() != filepath.Join(wantData, "registry.db") {
		t.Fatalf("unexpected registry path: %q", cfg.RegistryPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("PERMANENTES_DATABASE_URL", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "permanentes.toml")

	type payload struct {
		Registry struct {
			Driver string `toml:"driver"`
			DSN    string `toml:"dsn"`
		} `toml:"registry"`
		Matching struct {
			CenturyCutoff   int    `toml:"century_cutoff"`
			PermanentMarker string `toml:"permanent_marker"`
			Workers         int    `toml:"workers"`
		} `toml:"matching"`
		Import struct {
			Encoding  string `toml:"encoding"`
			Delimiter string `toml:"delimiter"`
		} `toml:"import"`
	}
	custom := payload{}
	custom.Registry.Driver = "PostgreSQL"
	custom.Registry.DSN = "postgres://u:p@db:5432/permanentes"
	custom.Matching.CenturyCutoff = 30
	custom.Matching.PermanentMarker = " permanente "
	custom.Matching.Workers = 8
	custom.Import.Encoding = "cp1252"
	custom.Import.Delimiter = ";"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Registry.Driver != "postgres" {
		t.Fatalf("expected driver alias to normalize to postgres, got %q", cfg.Registry.Driver)
	}
	if cfg.Registry.DSN != "postgres://u:p@db:5432/permanentes" {
		t.Fatalf("unexpected dsn: %q", cfg.Registry.DSN)
	}
	if cfg.Matching.CenturyCutoff != 30 {
		t.Fatalf("expected cutoff 30, got %d", cfg.Matching.CenturyCutoff)
	}
	if cfg.Matching.PermanentMarker != "PERMANENTE" {
		t.Fatalf("expected marker to be trimmed and upper-cased, got %q", cfg.Matching.PermanentMarker)
	}
	if cfg.Matching.Workers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Matching.Workers)
	}
	if cfg.Import.Encoding != "windows-1252" {
		t.Fatalf("expected encoding alias to normalize, got %q", cfg.Import.Encoding)
	}
	if cfg.Import.Delimiter != ";" {
		t.Fatalf("unexpected delimiter: %q", cfg.Import.Delimiter)
	}
}

func TestEnvVarOverridesConfigFileSecrets(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "permanentes.toml")
	contents := `
[paths]
api_token = "file-token"

[registry]
driver = "postgres"
dsn = "postgres://file"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PERMANENTES_API_TOKEN", "env-token")
	t.Setenv("PERMANENTES_DATABASE_URL", "postgres://env")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Registry.DSN != "postgres://env" {
		t.Errorf("expected DSN from env, got %q", cfg.Registry.DSN)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "century_cutoff") {
		t.Fatalf("sample config missing century_cutoff: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "permanentes") {
		t.Fatalf("expected data dir to contain permanentes, got %q", cfg.Paths.DataDir)
	}
	if cfg.Matching.PermanentMarker != "PERMANENTE" {
		t.Fatalf("unexpected sample marker: %q", cfg.Matching.PermanentMarker)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Registry.Driver = "mysql" }},
		{"postgres without dsn", func(c *config.Config) { c.Registry.Driver = "postgres"; c.Registry.DSN = "" }},
		{"negative cutoff", func(c *config.Config) { c.Matching.CenturyCutoff = -1 }},
		{"cutoff above 99", func(c *config.Config) { c.Matching.CenturyCutoff = 100 }},
		{"too many workers", func(c *config.Config) { c.Matching.Workers = 65 }},
		{"unknown extraction mode", func(c *config.Config) { c.Matching.ExtractionMode = "fuzzy" }},
		{"unknown encoding", func(c *config.Config) { c.Import.Encoding = "utf-16" }},
		{"unknown delimiter", func(c *config.Config) { c.Import.Delimiter = "|" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
