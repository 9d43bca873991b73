package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docexport/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Export   ExportSettings `yaml:"export"`
	Metadata MetadataConfig `yaml:"metadata"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// URL layouts understood by the rendered-site host.
const (
	URLLayoutFlat             = "flat"
	URLLayoutComponentVersion = "component-version"
)

// SiteConfig describes the rendered site handed to the pipeline.
type SiteConfig struct {
	Dir             string `yaml:"dir"`                        // Generator output directory (HTML tree)
	BaseURL         string `yaml:"base_url"`                   // Canonical site URL, e.g. https://docs.example.com
	ContentSelector string `yaml:"content_selector,omitempty"` // CSS selector for the page body
	SourceRoot      string `yaml:"source_root,omitempty"`      // Root of the source files (git work tree)
	URLLayout       string `yaml:"url_layout,omitempty"`       // flat | component-version
}

// ExportSettings is the raw export section; see ResolveExport for the effective values.
type ExportSettings struct {
	Enabled         *bool  `yaml:"enabled,omitempty"` // Explicit override, nil when unset
	AutoCI          *bool  `yaml:"auto_ci,omitempty"` // Honour CI detection (default true)
	OutputDir       string `yaml:"output_dir"`
	BaseURLTemplate string `yaml:"base_url_template,omitempty"` // Supports {component} and {version}
	IndexFile       string `yaml:"index_file,omitempty"`
	SQLiteIndex     string `yaml:"sqlite_index,omitempty"`
	MetadataFile    string `yaml:"metadata_file,omitempty"`
	Concurrency     int    `yaml:"concurrency,omitempty"`
	Prune           bool   `yaml:"prune,omitempty"` // Remove artifacts of pages no longer rendered
}

// MetadataConfig tunes the metadata annotator.
type MetadataConfig struct {
	WordsPerMinute int      `yaml:"words_per_minute,omitempty"`
	Git            *bool    `yaml:"git,omitempty"`       // Use git history for last-updated (default true)
	Languages      []string `yaml:"languages,omitempty"` // ISO 639-1 codes for index language detection
}

// NotifyConfig configures optional completion events.
type NotifyConfig struct {
	NATSURL           string           `yaml:"nats_url,omitempty"`
	Subject           string           `yaml:"subject,omitempty"`
	MaxRetries        int              `yaml:"max_retries,omitempty"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty"`       // fixed|linear|exponential
	RetryInitialDelay string           `yaml:"retry_initial_delay,omitempty"` // e.g. "500ms"
	RetryMaxDelay     string           `yaml:"retry_max_delay,omitempty"`     // e.g. "5s"
}

// RetryBackoffMode enumerates supported retry backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff returns the canonical mode, or "" when unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch m := RetryBackoffMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		return m
	default:
		return ""
	}
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`
	Format     string `yaml:"format,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// Default values applied by Load.
const (
	DefaultSiteDir         = "./public"
	DefaultContentSelector = "article.doc, main, body"
	DefaultOutputDir       = "./public/_export"
	DefaultIndexFile       = "search-index.json"
	DefaultMetadataFile    = "metadata.json"
	DefaultWordsPerMinute  = 200
	DefaultNotifySubject   = "docexport.export.completed"
)

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// .env is optional; existing environment always wins.
	_ = loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, derrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, derrors.ConfigInvalid(configPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration (after ${VAR} expansion) and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Dir == "" {
		c.Site.Dir = DefaultSiteDir
	}
	if c.Site.ContentSelector == "" {
		c.Site.ContentSelector = DefaultContentSelector
	}
	if c.Site.URLLayout == "" {
		c.Site.URLLayout = URLLayoutFlat
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = DefaultOutputDir
	}
	if c.Export.IndexFile == "" {
		c.Export.IndexFile = DefaultIndexFile
	}
	if c.Export.MetadataFile == "" {
		c.Export.MetadataFile = DefaultMetadataFile
	}
	if c.Export.BaseURLTemplate == "" {
		c.Export.BaseURLTemplate = c.Site.BaseURL
	}
	if c.Export.Concurrency <= 0 {
		c.Export.Concurrency = 1
	}
	if c.Metadata.WordsPerMinute <= 0 {
		c.Metadata.WordsPerMinute = DefaultWordsPerMinute
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultNotifySubject
	}
	c.Notify.RetryBackoff = NormalizeRetryBackoff(string(c.Notify.RetryBackoff))
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = string(LogFormatText)
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	if c.Notify.MaxRetries < 0 {
		return fmt.Errorf("notify.max_retries cannot be negative")
	}
	switch c.Site.URLLayout {
	case URLLayoutFlat, URLLayoutComponentVersion:
	default:
		return fmt.Errorf("site.url_layout: unsupported value %q", c.Site.URLLayout)
	}
	if c.Export.BaseURLTemplate == "" {
		return fmt.Errorf("site.base_url or export.base_url_template is required")
	}
	return nil
}

// GitEnabled reports whether git provenance is used for last-updated timestamps.
func (m MetadataConfig) GitEnabled() bool {
	return m.Git == nil || *m.Git
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Site: SiteConfig{
			Dir:             DefaultSiteDir,
			BaseURL:         "https://docs.example.com",
			ContentSelector: DefaultContentSelector,
			SourceRoot:      ".",
			URLLayout:       URLLayoutComponentVersion,
		},
		Export: ExportSettings{
			OutputDir:   DefaultOutputDir,
			IndexFile:   DefaultIndexFile,
			SQLiteIndex: "search-index.db",
			Concurrency: 4,
			Prune:       true,
		},
		Metadata: MetadataConfig{
			WordsPerMinute: DefaultWordsPerMinute,
			Languages:      []string{"en", "de"},
		},
		Logging: LoggingConfig{
			Level:  string(LogLevelInfo),
			Format: string(LogFormatText),
		},
		Notify: NotifyConfig{
			Subject:           DefaultNotifySubject,
			MaxRetries:        2,
			RetryBackoff:      RetryBackoffLinear,
			RetryInitialDelay: "500ms",
			RetryMaxDelay:     "5s",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
