package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRegistry() error {
	switch c.Registry.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Paths.DataDir) == "" {
			return fmt.Errorf("%w: paths.data_dir must be set for the sqlite registry", ErrInvalid)
		}
	case "postgres":
		if c.Registry.DSN == "" {
			return fmt.Errorf("%w: registry.dsn must be set when registry.driver is postgres (or set PERMANENTES_DATABASE_URL)", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: registry.driver must be sqlite or postgres, got %q", ErrInvalid, c.Registry.Driver)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.CenturyCutoff < 0 || c.Matching.CenturyCutoff > 99 {
		return fmt.Errorf("%w: matching.century_cutoff must be between 0 and 99", ErrInvalid)
	}
	if c.Matching.Workers > 64 {
		return fmt.Errorf("%w: matching.workers must be at most 64", ErrInvalid)
	}
	switch c.Matching.ExtractionMode {
	case "broad", "strict":
	default:
		return fmt.Errorf("%w: matching.extraction_mode must be broad or strict, got %q", ErrInvalid, c.Matching.ExtractionMode)
	}
	return nil
}

func (c *Config) validateImport() error {
	switch c.Import.Encoding {
	case "latin-1", "utf-8", "windows-1252":
	default:
		return fmt.Errorf("%w: import.encoding must be latin-1, windows-1252 or utf-8, got %q", ErrInvalid, c.Import.Encoding)
	}
	switch c.Import.Delimiter {
	case "auto", ";", ",":
	default:
		return fmt.Errorf("%w: import.delimiter must be auto, ';' or ',', got %q", ErrInvalid, c.Import.Delimiter)
	}
	return nil
}
