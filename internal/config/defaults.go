package config

const (
	defaultConfigPath      = "~/.config/permanentes/config.toml"
	defaultDataDir         = "~/.local/share/permanentes"
	defaultLogDir          = "~/.local/share/permanentes/logs"
	defaultAPIBind         = "127.0.0.1:7490"
	defaultRegistryDriver  = "sqlite"
	defaultCenturyCutoff   = 50
	defaultPermanentMarker = "PERMANENTE"
	defaultWorkers         = 1
	defaultExtractionMode  = "broad"
	defaultImportEncoding  = "latin-1"
	defaultImportDelimiter = "auto"
	defaultImportBatchSize = 500
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Registry: Registry{
			Driver: defaultRegistryDriver,
		},
		Matching: Matching{
			CenturyCutoff:   defaultCenturyCutoff,
			PermanentMarker: defaultPermanentMarker,
			Workers:         defaultWorkers,
			ExtractionMode:  defaultExtractionMode,
		},
		Import: Import{
			Encoding:  defaultImportEncoding,
			Delimiter: defaultImportDelimiter,
			BatchSize: defaultImportBatchSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
