package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	defaults := config.Default()
	assert.Equal(t, defaults.Provider, cfg.Provider)
	assert.Equal(t, defaults.Model, cfg.Model)
	assert.Equal(t, defaults.RequestsPerMinute, cfg.RequestsPerMinute)
	assert.Equal(t, defaults.Timeout, cfg.Timeout)
	assert.Equal(t, defaults.CacheTTL, cfg.CacheTTL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider: openai
model: gpt-4o
max_tokens: 2048
requests_per_minute: 5
timeout: 45s
cache_ttl: 10m
temperature: 0.3
catalog: prompts.yaml
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.Equal(t, 5, cfg.RequestsPerMinute)
	assert.Equal(t, 45*time.Second, cfg.Timeout.Std())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL.Std())
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, 0.3, *cfg.Temperature)
	assert.Equal(t, "prompts.yaml", cfg.Catalog)
}

func TestLoad_UnsetFieldsKeepDefaults(t *testing.T) {
	path := writeConfig(t, `model: gpt-4o`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, config.Default().RequestsPerMinute, cfg.RequestsPerMinute)
}

func TestLoad_CredentialsFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_ORG_ID", "org-test")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "org-test", cfg.OrgID)
}

func TestLoad_AnthropicCredentialFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")
	path := writeConfig(t, `provider: anthropic`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ak-test", cfg.APIKey)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "provider: [")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid defaults", func(*config.Config) {}, ""},
		{"unknown provider", func(c *config.Config) { c.Provider = "smoke-signals" }, "provider"},
		{"negative rpm", func(c *config.Config) { c.RequestsPerMinute = -1 }, "requests_per_minute"},
		{"negative max tokens", func(c *config.Config) { c.MaxTokens = -5 }, "max_tokens"},
		{"negative timeout", func(c *config.Config) { c.Timeout = config.Duration(-time.Second) }, "timeout"},
		{"negative ttl", func(c *config.Config) { c.CacheTTL = config.Duration(-time.Minute) }, "cache_ttl"},
		{
			"temperature out of range",
			func(c *config.Config) { temp := 3.5; c.Temperature = &temp },
			"temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
