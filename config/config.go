// Package config loads the toolmesh service configuration from YAML and the
// environment. Unset fields keep the values of DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvModelProvider   = "TOOLMESH_PROVIDER"
	EnvModelName       = "TOOLMESH_MODEL"
	EnvCatalogURL      = "TOOLMESH_CATALOG_URL"
	EnvToolBaseURL     = "TOOLMESH_TOOL_BASE_URL"
	EnvLogLevel        = "TOOLMESH_LOG_LEVEL"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Model        ModelConfig        `yaml:"model"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Tools        ToolsConfig        `yaml:"tools"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Log          LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"` // default 7433
	Host string `yaml:"host"` // default "127.0.0.1"
}

type ModelConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "anthropic" or "mock"
	Name        string  `yaml:"name"`     // empty selects the provider default
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseURL"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
	Stream      bool    `yaml:"stream"`
}

type CatalogConfig struct {
	Type    string        `yaml:"type"`    // "bolt", "memory" or "remote"
	DataDir string        `yaml:"dataDir"` // bolt only
	URL     string        `yaml:"url"`     // remote only
	Files   []string      `yaml:"files"`   // YAML definition files loaded at startup
	Timeout time.Duration `yaml:"timeout"` // per search attempt
	Retries int           `yaml:"retries"`
	Limit   int           `yaml:"limit"`
}

type ToolsConfig struct {
	BaseURL string        `yaml:"baseURL"` // resolves relative tool paths
	Timeout time.Duration `yaml:"timeout"` // per dynamic tool call
	// BaseFiles lists YAML definition files of tools that are always
	// available next to the search tool.
	BaseFiles []string `yaml:"baseFiles"`
}

type OrchestratorConfig struct {
	BasePrompt      string `yaml:"basePrompt"`
	MaxDynamicTools int    `yaml:"maxDynamicTools"`
	MaxSteps        int    `yaml:"maxSteps"` // turns per run when auto-continuing
}

type LogConfig struct {
	Level  string `yaml:"level"`  // default "info"
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7433,
			Host: "127.0.0.1",
		},
		Model: ModelConfig{
			Provider: "openai",
		},
		Catalog: CatalogConfig{
			Type:    "bolt",
			DataDir: defaultDataDir(),
			Timeout: 10 * time.Second,
			Retries: 2,
			Limit:   5,
		},
		Tools: ToolsConfig{
			Timeout: 30 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			BasePrompt:      "You are a helpful assistant.",
			MaxDynamicTools: 5,
			MaxSteps:        5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path (when not empty) over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
		defer f.Close()
		if err := cfg.Decode(f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with
// getenv. Provider API keys only fill an empty APIKey.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvModelProvider); v != "" {
		c.Model.Provider = v
	}
	if v := getenv(EnvModelName); v != "" {
		c.Model.Name = v
	}
	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case "openai":
			c.Model.APIKey = getenv(EnvOpenAIAPIKey)
		case "anthropic":
			c.Model.APIKey = getenv(EnvAnthropicAPIKey)
		}
	}
	if v := getenv(EnvCatalogURL); v != "" {
		c.Catalog.Type = "remote"
		c.Catalog.URL = v
	}
	if v := getenv(EnvToolBaseURL); v != "" {
		c.Tools.BaseURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Catalog.Type {
	case "bolt", "memory":
	case "remote":
		if c.Catalog.URL == "" {
			return errors.New("remote catalog requires catalog.url")
		}
	default:
		return fmt.Errorf("unknown catalog type %q", c.Catalog.Type)
	}
	if c.Orchestrator.MaxDynamicTools < 0 {
		return errors.New("orchestrator.maxDynamicTools must not be negative")
	}
	return nil
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the full path to the catalog BoltDB file.
func (c *Config) DBPath() string {
	return filepath.Join(expandHome(c.Catalog.DataDir), "catalog.db")
}

// defaultDataDir resolves the default data directory.
// It uses os.UserHomeDir() + "/.toolmesh/data", falling back to
// "/tmp/toolmesh/data" if the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "toolmesh", "data")
	}
	return filepath.Join(home, ".toolmesh", "data")
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
