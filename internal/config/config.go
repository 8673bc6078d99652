// Package config handles copilot.yaml configuration files for the AI client.
//
// Every setting has a typed field with a documented default; credentials are
// never stored in the file and come from the environment instead.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the expected config file name in the working directory.
const FileName = "copilot.yaml"

// Provider names accepted in the config file.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Duration wraps time.Duration so config values like "30s" or "5m" parse
// from YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go's string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config represents the contents of a copilot.yaml file.
type Config struct {
	// Provider selects the transport backend: "openai" or "anthropic".
	Provider string `yaml:"provider,omitempty"`

	// BaseURL overrides the provider API root (proxies, self-hosted
	// gateways). Empty uses the provider default.
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the default model for all requests.
	Model string `yaml:"model,omitempty"`

	// MaxTokens caps response length per request.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Temperature, when set, overrides the provider default.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// RequestsPerMinute is the outbound rate budget. Zero disables limiting.
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`

	// Timeout bounds each network call.
	Timeout Duration `yaml:"timeout,omitempty"`

	// CacheTTL is how long cached completions stay servable.
	CacheTTL Duration `yaml:"cache_ttl,omitempty"`

	// MaxRetries and RetryBackoff are advisory for callers that layer
	// retries on top; the client itself never retries.
	MaxRetries   int      `yaml:"max_retries,omitempty"`
	RetryBackoff Duration `yaml:"retry_backoff,omitempty"`

	// Catalog is the path to a YAML prompt-template catalog.
	Catalog string `yaml:"catalog,omitempty"`

	// PriceTable is the path to a TOML model price table. Empty uses the
	// compiled-in rates.
	PriceTable string `yaml:"price_table,omitempty"`

	// APIKey and OrgID are populated from the environment
	// (OPENAI_API_KEY / ANTHROPIC_API_KEY, OPENAI_ORG_ID), never from the
	// file.
	APIKey string `yaml:"-"`
	OrgID  string `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o-mini",
		MaxTokens:         1024,
		RequestsPerMinute: 20,
		Timeout:           Duration(30 * time.Second),
		CacheTTL:          Duration(5 * time.Minute),
		MaxRetries:        2,
		RetryBackoff:      Duration(2 * time.Second),
	}
}

// Load reads the config file at path, fills unset fields with defaults, and
// applies environment credentials. A missing file yields the defaults and no
// error; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills credentials from the environment based on the provider.
func (c *Config) applyEnv() {
	switch c.Provider {
	case ProviderAnthropic:
		c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		c.APIKey = os.Getenv("OPENAI_API_KEY")
		c.OrgID = os.Getenv("OPENAI_ORG_ID")
	}
}

// Validate rejects nonsensical settings.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("config: requests_per_minute must not be negative, got %d", c.RequestsPerMinute)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("config: max_tokens must not be negative, got %d", c.MaxTokens)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout must not be negative, got %s", c.Timeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: cache_ttl must not be negative, got %s", c.CacheTTL)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("config: temperature must be between 0 and 2, got %g", *c.Temperature)
	}
	return nil
}
