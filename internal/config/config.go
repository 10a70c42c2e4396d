// Package config loads the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/nexus/internal/feeds"
	"github.com/abelbrown/nexus/internal/fetch"
	"github.com/abelbrown/nexus/internal/model"
)

// Transport names.
const (
	TransportProxy  = "proxy"
	TransportDirect = "direct"
)

// Embedding provider names.
const (
	EmbedGemini = "gemini"
	EmbedOllama = "ollama"
	EmbedNone   = "none"
)

// Config is the application configuration.
type Config struct {
	Sources        []model.Source  `yaml:"sources"`
	Transport      string          `yaml:"transport"` // "proxy" or "direct"
	ProxyURL       string          `yaml:"proxy_url"`
	FetchTimeout   time.Duration   `yaml:"fetch_timeout"`
	PerSourceLimit int             `yaml:"per_source_limit"`
	Embed          EmbedConfig     `yaml:"embed"`
	Translate      TranslateConfig `yaml:"translate"`
	DataDir        string          `yaml:"data_dir"`
	DefaultLocale  string          `yaml:"default_locale"`

	// RefreshInterval re-aggregates in the background while the TUI runs.
	// Zero disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// EmbedConfig selects the embedding backend for semantic search.
type EmbedConfig struct {
	Provider string `yaml:"provider"` // "gemini", "ollama" or "none"
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"` // Ollama only
	APIKey   string `yaml:"api_key"`
}

// TranslateConfig configures the translation filler and its provider.
type TranslateConfig struct {
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	OllamaEndpoint string        `yaml:"ollama_endpoint"` // local fallback, empty disables
	OllamaModel    string        `yaml:"ollama_model"`
	BatchSize      int           `yaml:"batch_size"`
	Debounce       time.Duration `yaml:"debounce"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{Sources: fetch.DefaultSources()}
	setDefaults(cfg)
	return cfg
}

// DefaultPath returns ~/.nexus/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nexus", "config.yaml")
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = fetch.DefaultSources()
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportProxy
	}
	if cfg.ProxyURL == "" {
		cfg.ProxyURL = fetch.DefaultProxyURL
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = feeds.DefaultFetchTimeout
	}
	if cfg.PerSourceLimit == 0 {
		cfg.PerSourceLimit = 10
	}
	if cfg.Embed.Provider == "" {
		cfg.Embed.Provider = EmbedGemini
	}
	if cfg.Embed.Model == "" {
		switch cfg.Embed.Provider {
		case EmbedGemini:
			cfg.Embed.Model = "text-embedding-004"
		case EmbedOllama:
			cfg.Embed.Model = "nomic-embed-text"
		}
	}
	if cfg.Embed.Provider == EmbedOllama && cfg.Embed.Endpoint == "" {
		cfg.Embed.Endpoint = "http://localhost:11434"
	}
	if cfg.Translate.Model == "" {
		cfg.Translate.Model = "gemini-3-flash-preview"
	}
	if cfg.Translate.BatchSize == 0 {
		cfg.Translate.BatchSize = 10
	}
	if cfg.Translate.Debounce == 0 {
		cfg.Translate.Debounce = 500 * time.Millisecond
	}
	if cfg.DataDir == "" {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, ".nexus")
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = model.DefaultLocale
	}
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("config: sources[%d] has no id", i)
		}
		if s.URL == "" {
			return fmt.Errorf("config: source %q has no url", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("config: duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
	}
	switch c.Transport {
	case TransportProxy, TransportDirect:
	default:
		return fmt.Errorf("config: unsupported transport %q (supported: proxy, direct)", c.Transport)
	}
	switch c.Embed.Provider {
	case EmbedGemini, EmbedOllama, EmbedNone:
	default:
		return fmt.Errorf("config: unsupported embed provider %q (supported: gemini, ollama, none)", c.Embed.Provider)
	}
	if c.FetchTimeout < 0 || c.Translate.Debounce < 0 || c.RefreshInterval < 0 {
		return errors.New("config: durations must be positive")
	}
	if c.PerSourceLimit < 0 || c.Translate.BatchSize < 0 {
		return errors.New("config: per_source_limit and translate.batch_size must be positive")
	}
	return nil
}

// AutoPopulateFromEnv fills in API keys and endpoints from environment
// variables when the file left them empty.
func (c *Config) AutoPopulateFromEnv() {
	key := firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY", "API_KEY")
	if c.Embed.APIKey == "" {
		c.Embed.APIKey = key
	}
	if c.Translate.APIKey == "" {
		c.Translate.APIKey = key
	}
	if v := os.Getenv("NEXUS_TRANSPORT"); v != "" {
		c.Transport = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		if c.Embed.Provider == EmbedOllama {
			c.Embed.Endpoint = v
		}
		if c.Translate.OllamaEndpoint == "" {
			c.Translate.OllamaEndpoint = v
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Load reads the config file at path, expands environment variables,
// applies defaults and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	default:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.AutoPopulateFromEnv()
	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // Restrictive permissions for API keys
}

// DBPath is the preferences database inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "nexus.db")
}
