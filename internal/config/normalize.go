package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRegistry()
	c.normalizeMatching()
	c.normalizeImport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("PERMANENTES_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeRegistry() {
	c.Registry.Driver = strings.ToLower(strings.TrimSpace(c.Registry.Driver))
	switch c.Registry.Driver {
	case "":
		c.Registry.Driver = defaultRegistryDriver
	case "pg", "postgresql":
		c.Registry.Driver = "postgres"
	}
	if value, ok := os.LookupEnv("PERMANENTES_DATABASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Registry.DSN = strings.TrimSpace(value)
	}
	c.Registry.DSN = strings.TrimSpace(c.Registry.DSN)
}

func (c *Config) normalizeMatching() {
	c.Matching.PermanentMarker = strings.ToUpper(strings.TrimSpace(c.Matching.PermanentMarker))
	if c.Matching.PermanentMarker == "" {
		c.Matching.PermanentMarker = defaultPermanentMarker
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = defaultWorkers
	}
	c.Matching.ExtractionMode = strings.ToLower(strings.TrimSpace(c.Matching.ExtractionMode))
	if c.Matching.ExtractionMode == "" {
		c.Matching.ExtractionMode = defaultExtractionMode
	}
}

func (c *Config) normalizeImport() {
	encoding := strings.ToLower(strings.TrimSpace(c.Import.Encoding))
	switch encoding {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		encoding = "latin-1"
	case "utf8", "utf-8", "utf-8-sig":
		encoding = "utf-8"
	case "cp1252", "windows1252", "windows-1252":
		encoding = "windows-1252"
	}
	c.Import.Encoding = encoding
	c.Import.Delimiter = strings.TrimSpace(c.Import.Delimiter)
	if c.Import.Delimiter == "" {
		c.Import.Delimiter = defaultImportDelimiter
	}
	if c.Import.BatchSize <= 0 {
		c.Import.BatchSize = defaultImportBatchSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
