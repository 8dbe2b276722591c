package config

// ValidRenderFormats lists the values for render.default_format
var ValidRenderFormats = []string{"md", "html", "pdf"}

// ValidPaperFormats lists the values for pdf.format, lower-cased
var ValidPaperFormats = []string{"a4", "letter", "legal"}

// ValidLogLevels lists the values for logging.level
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Templates: TemplatesConfig{},
		Render: RenderConfig{
			DefaultFormat: "md",
		},
		PDF: PDFConfig{
			Format:          "A4",
			Margin:          "15mm",
			PrintBackground: boolPtr(true),
			Timeout:         "30s",
		},
		Archive: ArchiveConfig{
			Enabled: boolPtr(true),
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Templates: loaded.Templates,
		Render:    mergeRenderConfig(loaded.Render, defaults.Render),
		PDF:       mergePDFConfig(loaded.PDF, defaults.PDF),
		Archive:   mergeArchiveConfig(loaded.Archive, defaults.Archive),
		Watch:     mergeWatchConfig(loaded.Watch, defaults.Watch),
		Logging:   mergeLoggingConfig(loaded.Logging, defaults.Logging),
	}
}

func mergeRenderConfig(loaded, defaults RenderConfig) RenderConfig {
	return RenderConfig{
		DefaultFormat: orDefault(loaded.DefaultFormat, defaults.DefaultFormat),
	}
}

func mergePDFConfig(loaded, defaults PDFConfig) PDFConfig {
	result := loaded
	result.Format = orDefault(loaded.Format, defaults.Format)
	result.Margin = orDefault(loaded.Margin, defaults.Margin)
	result.Timeout = orDefault(loaded.Timeout, defaults.Timeout)

	// Pointer so an explicit false survives the merge.
	if loaded.PrintBackground == nil {
		result.PrintBackground = defaults.PrintBackground
	}
	return result
}

func mergeArchiveConfig(loaded, defaults ArchiveConfig) ArchiveConfig {
	if loaded.Enabled == nil {
		return defaults
	}
	return loaded
}

func mergeWatchConfig(loaded, defaults WatchConfig) WatchConfig {
	return WatchConfig{
		Debounce: orDefault(loaded.Debounce, defaults.Debounce),
	}
}

func mergeLoggingConfig(loaded, defaults LoggingConfig) LoggingConfig {
	return LoggingConfig{
		JSON:  loaded.JSON,
		Level: orDefault(loaded.Level, defaults.Level),
	}
}

func orDefault(loaded, fallback string) string {
	if loaded != "" {
		return loaded
	}
	return fallback
}

func boolPtr(v bool) *bool {
	return &v
}
