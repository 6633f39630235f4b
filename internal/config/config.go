// Package config provides configuration management for civicscan.
//
// Configuration is read once at startup from an optional YAML file layered
// over built-in defaults, then from environment variables, and is read-only
// afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoSources           = errors.New("at least one source URL is required")
	ErrEmptySource         = errors.New("source URL must not be empty")
	ErrMissingDataDir      = errors.New("data_dir is required")
	ErrMissingOutputPath   = errors.New("output.path is required")
	ErrInvalidOutputFormat = errors.New("output.format must be 'csv' or 'json'")
	ErrInvalidWaitTimeout  = errors.New("browser.wait_timeout must be positive")
	ErrInvalidDelay        = errors.New("browser delays must be non-negative")
	ErrInvalidBackend      = errors.New("structurer.backend must be one of: openai, ollama, none")
	ErrInvalidMaxTokens    = errors.New("structurer.max_tokens must be at least 1")
	ErrInvalidRate         = errors.New("structurer.requests_per_second must be non-negative")
	ErrInvalidHashStore    = errors.New("hash_store.backend must be 'file' or 'mongo'")
	ErrMissingMongoURI     = errors.New("hash_store.mongo_uri is required for the mongo backend")
	ErrInvalidAdapterRoute = errors.New("adapters entries need a pattern and an adapter")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvMongoURI  = "CIVICSCAN_MONGO_URI"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "civicscan.yaml"

// DefaultSources are the listing pages checked when no sources are configured.
var DefaultSources = []string{
	"https://www.ci.richmond.ca.us/1404/Major-Projects",
	"https://www.eurekaca.gov/744/Upcoming-Projects",
	"https://www.cityofsanrafael.org/major-planning-projects-2/",
}

// Config is the complete runtime configuration.
type Config struct {
	Sources    []string         `yaml:"sources"`
	DataDir    string           `yaml:"data_dir"`
	Output     OutputConfig     `yaml:"output"`
	Browser    BrowserConfig    `yaml:"browser"`
	Structurer StructurerConfig `yaml:"structurer"`
	HashStore  HashStoreConfig  `yaml:"hash_store"`
	Adapters   []AdapterRoute   `yaml:"adapters"`
	Logging    LoggingConfig    `yaml:"logging"`

	// OpenAIAPIKey comes from the environment only.
	OpenAIAPIKey string `yaml:"-"`
}

// OutputConfig controls where the final table is written.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// BrowserConfig controls page rendering and navigation timing.
type BrowserConfig struct {
	Headless          bool          `yaml:"headless"`
	ExecPath          string        `yaml:"exec_path"`
	UserAgent         string        `yaml:"user_agent"`
	WaitTimeout       time.Duration `yaml:"wait_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ReturnDelay       time.Duration `yaml:"return_delay"`
}

// StructurerConfig selects the text-generation backend. An empty Model uses
// the backend's own default.
type StructurerConfig struct {
	Backend           string  `yaml:"backend"`
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// HashStoreConfig selects where fingerprints are persisted.
type HashStoreConfig struct {
	Backend    string `yaml:"backend"`
	MongoURI   string `yaml:"mongo_uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// AdapterRoute sends URLs containing Pattern to a built-in adapter by name.
type AdapterRoute struct {
	Pattern string `yaml:"pattern"`
	Adapter string `yaml:"adapter"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sources: append([]string(nil), DefaultSources...),
		DataDir: "~/.local/share/civicscan",
		Output: OutputConfig{
			Path:   "standardized_data.csv",
			Format: "csv",
		},
		Browser: BrowserConfig{
			Headless:          true,
			WaitTimeout:       10 * time.Second,
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       2 * time.Second,
			ReturnDelay:       1 * time.Second,
		},
		Structurer: StructurerConfig{
			Backend:   "openai",
			MaxTokens: 150,
		},
		HashStore: HashStoreConfig{
			Backend:    "file",
			Database:   "civicscan",
			Collection: "fingerprints",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file at DefaultPath is not an
// error; a missing file anywhere else is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv copies credentials and overrides from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.OpenAIAPIKey = getenv(EnvOpenAIKey)
	if uri := getenv(EnvMongoURI); uri != "" {
		c.HashStore.MongoURI = uri
	}
}

// Validate checks the configuration. A missing OpenAI key is not an error:
// structuring degrades to passing text through.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for i, src := range c.Sources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("%w: sources[%d]", ErrEmptySource, i)
		}
	}

	if c.DataDir == "" {
		return ErrMissingDataDir
	}

	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}
	switch strings.ToLower(c.Output.Format) {
	case "csv", "json":
	default:
		return ErrInvalidOutputFormat
	}

	if c.Browser.WaitTimeout <= 0 {
		return ErrInvalidWaitTimeout
	}
	if c.Browser.SettleDelay < 0 || c.Browser.ReturnDelay < 0 || c.Browser.NavigationTimeout < 0 {
		return ErrInvalidDelay
	}

	switch strings.ToLower(c.Structurer.Backend) {
	case "openai", "ollama", "none":
	default:
		return ErrInvalidBackend
	}
	if c.Structurer.MaxTokens < 1 {
		return ErrInvalidMaxTokens
	}
	if c.Structurer.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}

	switch strings.ToLower(c.HashStore.Backend) {
	case "file":
	case "mongo":
		if c.HashStore.MongoURI == "" {
			return ErrMissingMongoURI
		}
	default:
		return ErrInvalidHashStore
	}

	for i, r := range c.Adapters {
		if strings.TrimSpace(r.Pattern) == "" || strings.TrimSpace(r.Adapter) == "" {
			return fmt.Errorf("%w: adapters[%d]", ErrInvalidAdapterRoute, i)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// String returns a short description of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, Output: %s (%s), Structurer: %s, HashStore: %s}",
		len(c.Sources),
		c.Output.Path,
		c.Output.Format,
		c.Structurer.Backend,
		c.HashStore.Backend,
	)
}
