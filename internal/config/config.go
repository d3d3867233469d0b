package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/riskloggr/internal/llm"
)

// Environment variables consulted after the config file.
const (
	EnvConfig       = "RISKLOGGR_CONFIG"
	EnvModel        = "RISKLOGGR_MODEL"
	EnvDatabase     = "RISKLOGGR_DB"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// placeholderKey ships in sample .env files and is treated as unset.
const placeholderKey = "your_openai_api_key_here"

const dirName = ".riskloggr"

// ProviderConfig holds the credential for one text-generation provider.
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
}

// Config is the riskloggr configuration file.
type Config struct {
	Model        string                    `yaml:"model"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Temperature  float64                   `yaml:"temperature"`
	MaxTokens    int                       `yaml:"max_tokens"`
	Timeout      time.Duration             `yaml:"timeout"`
	RetryBackoff time.Duration             `yaml:"retry_backoff"`
	Database     string                    `yaml:"database"`
	Actor        string                    `yaml:"actor"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Model:        llm.DefaultModel,
		Providers:    make(map[string]ProviderConfig),
		Temperature:  0.2,
		Timeout:      60 * time.Second,
		RetryBackoff: 2 * time.Second,
		Actor:        "anonymous",
	}
}

// Path returns $RISKLOGGR_CONFIG, or ~/.riskloggr/config.yaml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Load reads the config from Path and applies environment overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path and applies environment overrides. A
// missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Database == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.Database = filepath.Join(dir, "db")
	}
	return cfg, nil
}

// Read returns the file at path layered over the defaults, without
// environment overrides. It is what Save should be given back, so that
// credentials from the environment are never written to disk.
func Read(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.SetAPIKey("openai", v)
	}
	if v := os.Getenv(EnvAnthropicKey); v != "" {
		c.SetAPIKey("anthropic", v)
	}
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	if _, _, err := llm.SplitModel(c.Model); err != nil {
		return err
	}
	if c.Timeout < 0 || c.RetryBackoff < 0 {
		return errors.New("timeout and retry_backoff must not be negative")
	}
	if c.MaxTokens < 0 {
		return errors.New("max_tokens must not be negative")
	}
	return nil
}

// ProviderName returns the provider half of Model.
func (c *Config) ProviderName() string {
	name, _, _ := strings.Cut(c.Model, ":")
	return name
}

// APIKey returns the credential for the configured model's provider, or ""
// when it is unset or still the sample placeholder.
func (c *Config) APIKey() string {
	key := strings.TrimSpace(c.Providers[c.ProviderName()].APIKey)
	if key == placeholderKey {
		return ""
	}
	return key
}

// SetAPIKey stores key for provider.
func (c *Config) SetAPIKey(provider, key string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

// Save writes c to path, creating the parent directory. The file holds
// credentials, so it is written 0600.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
