package main

import (
	"fmt"

	"github.com/aiworkoutgenerator/member-copilot-ai/internal/config"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/llm"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/metrics"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/prompt"
	"github.com/aiworkoutgenerator/member-copilot-ai/internal/ratelimit"
)

// buildTransport constructs the transport named by the config.
func buildTransport(cfg *config.Config) (llm.Transport, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		var opts []llm.AnthropicOption
		if cfg.Model != "" {
			opts = append(opts, llm.WithAnthropicModel(cfg.Model))
		}
		if cfg.APIKey != "" {
			opts = append(opts, llm.WithAnthropicAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, llm.WithAnthropicBaseURL(cfg.BaseURL))
		}
		return llm.NewAnthropicTransport(opts...)
	default:
		opts := []llm.OpenAIOption{
			llm.WithTimeout(cfg.Timeout.Std()),
		}
		if cfg.Model != "" {
			opts = append(opts, llm.WithModel(cfg.Model))
		}
		if cfg.APIKey != "" {
			opts = append(opts, llm.WithAPIKey(cfg.APIKey))
		}
		if cfg.OrgID != "" {
			opts = append(opts, llm.WithOrganization(cfg.OrgID))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.BaseURL))
		}
		return llm.NewOpenAITransport(opts...)
	}
}

// buildClient wires a complete client from the config: transport, rate
// limiter, price-aware metrics tracker, and response cache.
func buildClient(cfg *config.Config) (*llm.Client, error) {
	transport, err := buildTransport(cfg)
	if err != nil {
		return nil, err
	}

	trackerOpts := []metrics.Option{}
	if cfg.PriceTable != "" {
		prices, err := metrics.LoadPrices(cfg.PriceTable)
		if err != nil {
			return nil, err
		}
		trackerOpts = append(trackerOpts, metrics.WithPrices(prices))
	}

	return llm.NewClient(transport,
		llm.WithLimiter(ratelimit.New(cfg.RequestsPerMinute)),
		llm.WithTracker(metrics.New(trackerOpts...)),
		llm.WithCacheTTL(cfg.CacheTTL.Std()),
	), nil
}

// loadTemplate fetches a template from the configured catalog.
func loadTemplate(cfg *config.Config, catalogPath, id string) (prompt.Template, error) {
	path := catalogPath
	if path == "" {
		path = cfg.Catalog
	}
	if path == "" {
		return prompt.Template{}, fmt.Errorf("no catalog configured: set --catalog or the catalog field in %s", config.FileName)
	}

	catalog, err := prompt.LoadCatalog(path)
	if err != nil {
		return prompt.Template{}, err
	}
	tpl, ok := catalog.Get(id)
	if !ok {
		return prompt.Template{}, fmt.Errorf("template %q not found in %s", id, path)
	}
	return tpl, nil
}

// parseVarFlags converts repeated --var k=v flags into a variable map.
func parseVarFlags(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := cutPair(pair)
		if !ok {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		vars[k] = v
	}
	return vars, nil
}

func cutPair(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], i > 0
		}
	}
	return "", "", false
}
