package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the weekly configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the weekly configuration directory
const ConfigDirName = ".weekly"

// Config holds all weekly configuration
type Config struct {
	Templates TemplatesConfig `yaml:"templates"`
	Render    RenderConfig    `yaml:"render"`
	PDF       PDFConfig       `yaml:"pdf"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TemplatesConfig selects the templates used by render. Empty paths mean
// the built-in templates.
type TemplatesConfig struct {
	Markdown     string `yaml:"markdown"`
	HTML         string `yaml:"html"`
	AllowUnknown bool   `yaml:"allow_unknown"`
}

// RenderConfig holds render defaults
type RenderConfig struct {
	DefaultFormat string `yaml:"default_format"`
}

// PDFConfig holds PDF printing options
type PDFConfig struct {
	Format              string `yaml:"format"`
	Margin              string `yaml:"margin"`
	PrintBackground     *bool  `yaml:"print_background"`
	DisplayHeaderFooter bool   `yaml:"display_header_footer"`
	HeaderHTML          string `yaml:"header_html"`
	FooterHTML          string `yaml:"footer_html"`
	ChromePath          string `yaml:"chrome_path"`
	Timeout             string `yaml:"timeout"`
}

// ArchiveConfig controls the render archive
type ArchiveConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// WatchConfig holds watch mode options
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// LoggingConfig holds logging options
type LoggingConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .weekly/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "reading config file")
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, errors.WithHintf(err, "fix %s or regenerate it with `weekly init --force`", path)
	}

	return merged, nil
}

// FindConfigDir locates the .weekly directory by walking up from startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrap(err, "resolving path")
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .weekly directory if it doesn't exist.
// Returns the path to the .weekly directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", errors.Wrap(err, "resolving path")
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", errors.Newf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", errors.Wrap(err, "creating config directory")
	}

	return configDir, nil
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if !isOneOf(cfg.Render.DefaultFormat, ValidRenderFormats) {
		return errors.Wrapf(ErrInvalidConfig, "render.default_format must be one of %v, got %q",
			ValidRenderFormats, cfg.Render.DefaultFormat)
	}

	if !isOneOf(strings.ToLower(cfg.PDF.Format), ValidPaperFormats) {
		return errors.Wrapf(ErrInvalidConfig, "pdf.format must be one of %v, got %q",
			ValidPaperFormats, cfg.PDF.Format)
	}

	if strings.TrimSpace(cfg.PDF.Margin) == "" {
		return errors.Wrap(ErrInvalidConfig, "pdf.margin must not be empty")
	}

	if d, err := time.ParseDuration(cfg.PDF.Timeout); err != nil || d <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "pdf.timeout must be a positive duration, got %q", cfg.PDF.Timeout)
	}

	if d, err := time.ParseDuration(cfg.Watch.Debounce); err != nil || d < 0 {
		return errors.Wrapf(ErrInvalidConfig, "watch.debounce must be a non-negative duration, got %q", cfg.Watch.Debounce)
	}

	if !isOneOf(cfg.Logging.Level, ValidLogLevels) {
		return errors.Wrapf(ErrInvalidConfig, "logging.level must be one of %v, got %q",
			ValidLogLevels, cfg.Logging.Level)
	}

	return nil
}

// SaveDefault writes the default configuration to .weekly/config.yaml in
// workDir. An existing file is replaced only when force is set.
func SaveDefault(workDir string, force bool) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !force {
		return "", errors.WithHint(
			errors.Newf("config file already exists: %s", configPath),
			"use --force to overwrite it",
		)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", errors.Wrap(err, "marshaling config")
	}

	header := "# weekly configuration\n" +
		"# Template paths are relative to the working directory; empty means built-in.\n" +
		"# pdf.header_html and pdf.footer_html hold inline HTML, not file paths.\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", errors.Wrap(err, "writing config file")
	}

	return configPath, nil
}

// TimeoutDuration returns the parsed PDF timeout.
func (c PDFConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Background reports whether backgrounds are printed.
func (c PDFConfig) Background() bool {
	return c.PrintBackground == nil || *c.PrintBackground
}

// DebounceDuration returns the parsed watch debounce.
func (c WatchConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Debounce)
	return d
}

// IsEnabled reports whether renders are archived.
func (c ArchiveConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func isOneOf(value string, valid []string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
