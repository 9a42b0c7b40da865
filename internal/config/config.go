package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrInvalid marks configuration values rejected by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Registry selects the storage backend holding permanent records and listings.
type Registry struct {
	// Driver is "sqlite" (default, file under data_dir) or "postgres".
	Driver string `toml:"driver"`
	// DSN is the Postgres connection string. Ignored for sqlite.
	DSN string `toml:"dsn"`
}

// Matching contains the knobs of the identifier resolution engine.
type Matching struct {
	// CenturyCutoff splits two-digit legacy years: above it is 19xx, otherwise 20xx.
	CenturyCutoff int `toml:"century_cutoff"`
	// PermanentMarker is the status substring that flags a permanent record.
	PermanentMarker string `toml:"permanent_marker"`
	// Workers bounds concurrent resolutions during batch reconciliation.
	Workers int `toml:"workers"`
	// ExtractionMode is the default for pasted text: "broad" or "strict".
	ExtractionMode string `toml:"extraction_mode"`
}

// Import contains configuration for the CSV registry importer.
type Import struct {
	// Encoding is "latin-1", "windows-1252", or "utf-8".
	Encoding string `toml:"encoding"`
	// Delimiter is "auto", ";" or ",".
	Delimiter string `toml:"delimiter"`
	// BatchSize is the number of rows written per transaction.
	BatchSize int `toml:"batch_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for permanentes.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Registry: storage backend selection
//   - Matching: legacy decoding and batch reconciliation
//   - Import: CSV export reading
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Registry Registry `toml:"registry"`
	Matching Matching `toml:"matching"`
	Import   Import   `toml:"import"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("permanentes.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RegistryPath returns the SQLite database file used by the sqlite driver.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.DataDir, "registry.db")
}

// LockPath returns the single-instance lock file of the API daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "permanentes.lock")
}

// ImportLockPath returns the lock file that keeps CSV imports from overlapping.
func (c *Config) ImportLockPath() string {
	return filepath.Join(c.Paths.DataDir, "import.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
