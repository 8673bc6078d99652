package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/config"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/llm"
)

func TestParseVarFlags(t *testing.T) {
	vars, err := parseVarFlags([]string{"name=Alice", "goal=strength", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"name": "Alice",
		"goal": "strength",
		"note": "a=b", // only the first = splits
	}, vars)
}

func TestParseVarFlags_Empty(t *testing.T) {
	vars, err := parseVarFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestParseVarFlags_Invalid(t *testing.T) {
	for _, bad := range []string{"noequals", "=value", ""} {
		_, err := parseVarFlags([]string{bad})
		assert.Error(t, err, "pair %q should be rejected", bad)
	}
}

func TestCutPair(t *testing.T) {
	tests := []struct {
		in         string
		key, value string
		ok         bool
	}{
		{"k=v", "k", "v", true},
		{"k=", "k", "", true},
		{"k=v=w", "k", "v=w", true},
		{"=v", "", "", false},
		{"kv", "", "", false},
	}
	for _, tt := range tests {
		k, v, ok := cutPair(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.key, k, "input %q", tt.in)
			assert.Equal(t, tt.value, v, "input %q", tt.in)
		}
	}
}

func TestBuildTransport_Providers(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "test-key"

	transport, err := buildTransport(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAITransport{}, transport)

	cfg.Provider = config.ProviderAnthropic
	transport, err = buildTransport(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.AnthropicTransport{}, transport)
}

func TestBuildTransport_EmptyModelKeepsDefault(t *testing.T) {
	// The health command clears Model when checking the provider the config
	// was not written for; the transport's own default must survive that.
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.Model = ""

	transport, err := buildTransport(cfg)
	require.NoError(t, err)
	ot, ok := transport.(*llm.OpenAITransport)
	require.True(t, ok)
	assert.NotEmpty(t, ot.Model(), "empty config model must not clobber the transport default")

	cfg.Provider = config.ProviderAnthropic
	transport, err = buildTransport(cfg)
	require.NoError(t, err)
	at, ok := transport.(*llm.AnthropicTransport)
	require.True(t, ok)
	assert.NotEmpty(t, at.Model(), "empty config model must not clobber the transport default")
}

func TestBuildClient(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "test-key"

	client, err := buildClient(cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	snap := client.Metrics()
	assert.Zero(t, snap.RequestCount)
}

func TestLoadTemplate_NoCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog = ""

	_, err := loadTemplate(cfg, "", "greeting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no catalog configured")
}
