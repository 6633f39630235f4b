package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "civicscan.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

const validConfigYAML = `
sources:
  - https://www.ci.richmond.ca.us/1404/Major-Projects
  - https://example.gov/projects
data_dir: /tmp/civicscan
output:
  path: out/projects.json
  format: json
browser:
  wait_timeout: 5s
  settle_delay: 500ms
structurer:
  backend: ollama
  model: llama3
  base_url: http://localhost:11434
  requests_per_second: 2
adapters:
  - pattern: example.gov
    adapter: richmond
logging:
  level: debug
`

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if len(cfg.Sources) != 3 {
		t.Errorf("expected 3 default sources, got %d", len(cfg.Sources))
	}
	if cfg.Browser.WaitTimeout != 10*time.Second {
		t.Errorf("WaitTimeout = %v, want 10s", cfg.Browser.WaitTimeout)
	}
	if cfg.Structurer.MaxTokens != 150 {
		t.Errorf("MaxTokens = %d, want 150", cfg.Structurer.MaxTokens)
	}
	if cfg.Output.Path != "standardized_data.csv" {
		t.Errorf("Output.Path = %q", cfg.Output.Path)
	}
	// The model is left to each backend's default.
	if cfg.Structurer.Model != "" {
		t.Errorf("Structurer.Model = %q, want empty", cfg.Structurer.Model)
	}
}

func TestDefault_SourcesAreCopied(t *testing.T) {
	cfg := Default()
	cfg.Sources[0] = "changed"

	if DefaultSources[0] == "changed" {
		t.Error("Default() shares the DefaultSources backing array")
	}
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", cfg.Output.Format)
	}
	if cfg.Browser.WaitTimeout != 5*time.Second {
		t.Errorf("WaitTimeout = %v, want 5s", cfg.Browser.WaitTimeout)
	}
	if cfg.Browser.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 500ms", cfg.Browser.SettleDelay)
	}
	// Unset values keep their defaults.
	if cfg.Browser.ReturnDelay != time.Second {
		t.Errorf("ReturnDelay = %v, want default 1s", cfg.Browser.ReturnDelay)
	}
	if cfg.Structurer.MaxTokens != 150 {
		t.Errorf("MaxTokens = %d, want default 150", cfg.Structurer.MaxTokens)
	}
	if len(cfg.Adapters) != 1 || cfg.Adapters[0].Adapter != "richmond" {
		t.Errorf("Adapters = %+v", cfg.Adapters)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("default path", func(t *testing.T) {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })

		cfg, err := Load(DefaultPath)
		if err != nil {
			t.Fatalf("Load(DefaultPath) error: %v", err)
		}
		if len(cfg.Sources) != len(DefaultSources) {
			t.Errorf("expected defaults, got %d sources", len(cfg.Sources))
		}
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(createTempConfigFile(t, "sources: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvOpenAIKey: "sk-test",
		EnvMongoURI:  "mongodb://localhost:27017",
	}

	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q", cfg.OpenAIAPIKey)
	}
	if cfg.HashStore.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("MongoURI = %q", cfg.HashStore.MongoURI)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no sources", func(c *Config) { c.Sources = nil }, ErrNoSources},
		{"blank source", func(c *Config) { c.Sources = []string{"https://a", " "} }, ErrEmptySource},
		{"no data dir", func(c *Config) { c.DataDir = "" }, ErrMissingDataDir},
		{"no output path", func(c *Config) { c.Output.Path = "" }, ErrMissingOutputPath},
		{"bad format", func(c *Config) { c.Output.Format = "xlsx" }, ErrInvalidOutputFormat},
		{"zero wait", func(c *Config) { c.Browser.WaitTimeout = 0 }, ErrInvalidWaitTimeout},
		{"negative settle", func(c *Config) { c.Browser.SettleDelay = -time.Second }, ErrInvalidDelay},
		{"bad backend", func(c *Config) { c.Structurer.Backend = "gpt" }, ErrInvalidBackend},
		{"zero tokens", func(c *Config) { c.Structurer.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"negative rate", func(c *Config) { c.Structurer.RequestsPerSecond = -1 }, ErrInvalidRate},
		{"bad store", func(c *Config) { c.HashStore.Backend = "redis" }, ErrInvalidHashStore},
		{"mongo without uri", func(c *Config) { c.HashStore.Backend = "mongo" }, ErrMissingMongoURI},
		{"bad route", func(c *Config) { c.Adapters = []AdapterRoute{{Pattern: "x"}} }, ErrInvalidAdapterRoute},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"missing key is fine", func(c *Config) { c.OpenAIAPIKey = "" }, nil},
		{"backend none", func(c *Config) { c.Structurer.Backend = "none" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
